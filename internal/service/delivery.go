package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ghostpost/capsule-server/internal/envelope"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
	"github.com/ghostpost/capsule-server/internal/notify"
)

// Delivery runs the periodic sweep over due, undelivered capsules. The sweep
// is safe to invoke concurrently or redundantly: the delivered flag is
// claimed with a compare-and-set before any send, so overlapping sweeps
// cannot both send the same capsule.
type Delivery struct {
	capsuleStore model.CapsuleStore
	userStore    model.UserStore
	cipher       *envelope.Cipher
	blobs        model.BlobStore
	notifier     model.Notifier
	logger       *logger.Logger
	sendTimeout  time.Duration
	now          func() time.Time
}

func NewDelivery(
	capsuleStore model.CapsuleStore,
	userStore model.UserStore,
	cipher *envelope.Cipher,
	blobs model.BlobStore,
	notifier model.Notifier,
	logger *logger.Logger,
	sendTimeout time.Duration,
) *Delivery {
	return &Delivery{
		capsuleStore: capsuleStore,
		userStore:    userStore,
		cipher:       cipher,
		blobs:        blobs,
		notifier:     notifier,
		logger:       logger,
		sendTimeout:  sendTimeout,
		now:          time.Now,
	}
}

// RunSweep processes every due capsule independently: a failure on one item
// never aborts the batch. Delivery is at-least-once; a send that succeeds
// but whose claim revert is lost on crash is the accepted rare-duplicate
// window.
func (s *Delivery) RunSweep(ctx context.Context) (model.SweepReport, error) {
	now := s.now()
	due, err := s.capsuleStore.ListDueUndelivered(ctx, now)
	if err != nil {
		return model.SweepReport{}, fmt.Errorf("failed to query due capsules: %w", err)
	}

	report := model.SweepReport{Found: len(due)}
	if len(due) == 0 {
		return report, nil
	}

	for _, capsule := range due {
		if ctx.Err() != nil {
			return report, fmt.Errorf("sweep interrupted: %w", ctx.Err())
		}
		if s.process(ctx, capsule) {
			report.Sent++
		} else {
			report.Skipped++
		}
	}

	s.logger.Info("delivery sweep finished",
		"found", report.Found,
		"sent", report.Sent,
		"skipped", report.Skipped)

	return report, nil
}

// process attempts delivery of one capsule and reports whether the
// notification went out and the capsule stayed marked delivered.
func (s *Delivery) process(ctx context.Context, capsule model.Capsule) bool {
	recipient := s.cipher.Decrypt(capsule.Recipient)
	title := s.cipher.Decrypt(capsule.Title)
	message := s.cipher.Decrypt(capsule.Message)

	// An unreadable field must never reach a recipient, and the capsule is
	// deliberately left unclaimed so a later sweep can retry after repair.
	// Marking it delivered here would silently drop the message.
	if recipient == envelope.Unreadable || recipient == "" ||
		title == envelope.Unreadable || message == envelope.Unreadable {
		s.logger.Error("capsule content is unreadable, leaving for a future sweep",
			"capsule_id", capsule.ID)
		return false
	}

	attachment := ""
	if capsule.AttachmentKey != "" {
		attachment = s.loadAttachment(ctx, capsule.AttachmentKey)
		if attachment == envelope.Unreadable {
			// The message itself is intact; deliver without the attachment
			// rather than hold the whole capsule hostage.
			s.logger.Error("attachment is unreadable, delivering without it",
				"capsule_id", capsule.ID, "key", capsule.AttachmentKey)
			attachment = ""
		}
	}

	senderName := "A Friend"
	if owner, err := s.userStore.GetByID(ctx, capsule.OwnerID); err == nil && owner.Name != "" {
		senderName = owner.Name
	}

	attachmentSrc := ""
	if attachment != "" {
		if strings.HasPrefix(strings.ToLower(attachment), "data:") {
			attachmentSrc = "cid:" + notify.EmbedName
		} else {
			attachmentSrc = attachment
		}
	}

	subject, body, err := notify.RenderUnlockMail(notify.UnlockMailData{
		SenderName:    senderName,
		Title:         title,
		Message:       message,
		SealedOn:      capsule.CreatedAt,
		AttachmentSrc: attachmentSrc,
	})
	if err != nil {
		s.logger.Error("failed to render notification", "error", err, "capsule_id", capsule.ID)
		return false
	}

	// Claim before send: losing the claim means another sweep owns this
	// capsule and sending here would duplicate.
	claimed, err := s.capsuleStore.MarkDelivered(ctx, capsule.ID)
	if err != nil {
		s.logger.Error("failed to claim capsule", "error", err, "capsule_id", capsule.ID)
		return false
	}
	if !claimed {
		s.logger.Info("capsule already claimed by a concurrent sweep", "capsule_id", capsule.ID)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	err = s.notifier.Send(sendCtx, model.Notification{
		To:         recipient,
		Subject:    subject,
		HTMLBody:   body,
		Attachment: attachment,
	})
	if err != nil {
		s.logger.Error("failed to send notification, reverting claim",
			"error", err, "capsule_id", capsule.ID)
		if revertErr := s.capsuleStore.MarkUndelivered(ctx, capsule.ID); revertErr != nil {
			s.logger.Error("failed to revert delivery claim",
				"error", revertErr, "capsule_id", capsule.ID)
		}
		return false
	}

	s.logger.Info("capsule delivered", "capsule_id", capsule.ID)
	return true
}

func (s *Delivery) loadAttachment(ctx context.Context, key string) string {
	reader, err := s.blobs.Download(ctx, key)
	if err != nil {
		s.logger.Error("failed to download attachment", "error", err, "key", key)
		return envelope.Unreadable
	}
	defer reader.Close()

	env, err := io.ReadAll(reader)
	if err != nil {
		s.logger.Error("failed to read attachment", "error", err, "key", key)
		return envelope.Unreadable
	}
	return s.cipher.Decrypt(string(env))
}
