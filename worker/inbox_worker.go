package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campuscms/config"
	"campuscms/models"
)

// InboxWorker polls the newsletter mailbox over IMAP and stores unseen
// messages as InboxReply rows for the operator to review. It does not
// classify bounces or complaints.
type InboxWorker struct {
	db     *gorm.DB
	cfg    config.IMAPConfig
	logger *logrus.Entry
}

func NewInboxWorker(db *gorm.DB, cfg config.IMAPConfig, logger *logrus.Entry) *InboxWorker {
	return &InboxWorker{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

func (iw *InboxWorker) Start(ctx context.Context) {
	iw.logger.Info("inbox worker started")
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			iw.logger.Info("inbox worker shutting down")
			return
		case <-ticker.C:
			if err := iw.fetchReplies(); err != nil {
				sentry.CaptureException(err)
				iw.logger.WithError(err).Error("inbox fetch failed")
			}
		}
	}
}

func (iw *InboxWorker) fetchReplies() error {
	addr := fmt.Sprintf("%s:%d", iw.cfg.Host, iw.cfg.Port)
	imapClient, err := client.DialTLS(addr, &tls.Config{ServerName: iw.cfg.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(iw.cfg.Username, iw.cfg.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	mailbox := iw.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := imapClient.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	stored := 0
	for msg := range messages {
		if err := iw.storeReply(msg); err != nil {
			iw.logger.WithError(err).Warnf("failed to store message %d", msg.SeqNum)
			continue
		}
		stored++
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %w", err)
	}

	if stored > 0 {
		iw.logger.WithField("count", stored).Info("stored new replies")
	}
	return nil
}

// replyFromEnvelope maps the IMAP envelope onto a reply row. A missing
// Message-Id header stays nil so rows without one never collide on the
// unique index.
func replyFromEnvelope(env *imap.Envelope) models.InboxReply {
	reply := models.InboxReply{
		ReceivedAt: time.Now(),
	}
	if env == nil {
		return reply
	}

	if env.MessageId != "" {
		id := env.MessageId
		reply.MessageID = &id
	}
	reply.Subject = env.Subject
	if !env.Date.IsZero() {
		reply.ReceivedAt = env.Date
	}
	if len(env.From) > 0 {
		reply.FromEmail = models.NormalizeEmail(env.From[0].Address())
		reply.FromName = env.From[0].PersonalName
	}
	return reply
}

func (iw *InboxWorker) storeReply(msg *imap.Message) error {
	reply := replyFromEnvelope(msg.Envelope)

	if reply.MessageID != nil {
		var existing models.InboxReply
		if err := iw.db.Where("message_id = ?", *reply.MessageID).First(&existing).Error; err == nil {
			return nil // already stored
		}
	}

	section := &imap.BodySectionName{Peek: true}
	if literal := msg.GetBody(section); literal != nil {
		bodyText, bodyHTML, err := readBodyParts(literal)
		if err != nil {
			return err
		}
		reply.BodyText = bodyText
		reply.BodyHTML = bodyHTML
	}

	return iw.db.Create(&reply).Error
}

func readBodyParts(literal imap.Literal) (string, string, error) {
	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", "", fmt.Errorf("failed to create message reader: %w", err)
	}

	var bodyText, bodyHTML string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", "", fmt.Errorf("failed to read next part: %w", err)
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", "", fmt.Errorf("failed to read body: %w", err)
			}
			if strings.Contains(contentType, "text/html") {
				bodyHTML = string(b)
			} else if strings.Contains(contentType, "text/plain") {
				bodyText = string(b)
			}
		}
	}
	return bodyText, bodyHTML, nil
}
