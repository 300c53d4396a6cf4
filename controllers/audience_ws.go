package controller

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"campuscms/models"
	"campuscms/utils"
)

// audienceAction is one builder operation streamed from the admin UI.
type audienceAction struct {
	Action       string `json:"action"` // set_mode, set_segment, toggle_subscriber, add_email, remove_email, remove_subscriber, search
	Mode         string `json:"mode,omitempty"`
	Status       string `json:"status,omitempty"`
	SubscriberID uint   `json:"subscriber_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Query        string `json:"query,omitempty"`
}

type audienceEvent struct {
	Event       string               `json:"event"`
	Total       int64                `json:"total,omitempty"`
	Mode        string               `json:"mode,omitempty"`
	Error       string               `json:"error,omitempty"`
	Query       string               `json:"query,omitempty"`
	Subscribers []models.Subscriber  `json:"subscribers,omitempty"`
	SearchTotal int64                `json:"search_total,omitempty"`
	Spec        *models.AudienceSpec `json:"spec,omitempty"`
}

// HandleAudiencePreview keeps one SpecBuilder per connection and answers
// every action with the live recipient total, so the operator sees an
// accurate count without a round trip per keystroke. Searches go through the
// debounced, superseded-request searcher.
func HandleAudiencePreview(directory utils.SubscriberDirectory, logger *logrus.Entry) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		counts, err := directory.Counts(ctx)
		if err != nil {
			logger.WithError(err).Error("failed to load subscriber counts")
			_ = c.WriteJSON(audienceEvent{Event: "error", Error: "directory unavailable"})
			return
		}

		builder := utils.NewSpecBuilder(counts)
		search := utils.NewSubscriberSearch(directory, 300*time.Millisecond)

		// Search results arrive from a timer goroutine; serialize writes.
		var writeMu sync.Mutex
		send := func(ev audienceEvent) {
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := c.WriteJSON(ev); err != nil {
				logger.WithError(err).Debug("audience preview write failed")
			}
		}

		sendTotal := func() {
			spec := builder.Spec()
			send(audienceEvent{
				Event: "total",
				Total: builder.TotalRecipients(),
				Mode:  builder.Mode(),
				Spec:  &spec,
			})
		}
		sendTotal()

		for {
			var action audienceAction
			if err := c.ReadJSON(&action); err != nil {
				return
			}

			switch action.Action {
			case "set_mode":
				if err := builder.SetMode(action.Mode); err != nil {
					send(audienceEvent{Event: "error", Error: err.Error()})
					continue
				}
				sendTotal()

			case "set_segment":
				if err := builder.SetSegment(action.Status); err != nil {
					send(audienceEvent{Event: "error", Error: err.Error()})
					continue
				}
				sendTotal()

			case "toggle_subscriber":
				subs, err := directory.FindByIDs(ctx, []uint{action.SubscriberID})
				if err != nil || len(subs) == 0 {
					send(audienceEvent{Event: "error", Error: "subscriber not found"})
					continue
				}
				builder.ToggleSubscriber(subs[0])
				sendTotal()

			case "add_email":
				if err := builder.AddExtraEmail(action.Email); err != nil {
					send(audienceEvent{Event: "error", Error: err.Error()})
					continue
				}
				sendTotal()

			case "remove_email":
				builder.RemoveExtraEmail(action.Email)
				sendTotal()

			case "remove_subscriber":
				builder.RemoveSubscriber(action.SubscriberID)
				sendTotal()

			case "search":
				search.Submit(ctx, action.Query, func(res utils.SearchResult) {
					if res.Err != nil {
						send(audienceEvent{Event: "error", Error: "search failed"})
						return
					}
					send(audienceEvent{
						Event:       "search_results",
						Query:       res.Query,
						Subscribers: res.Subscribers,
						SearchTotal: res.Total,
					})
				})

			default:
				send(audienceEvent{Event: "error", Error: "unknown action"})
			}
		}
	}
}
