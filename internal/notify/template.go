package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// EmbedName is the content ID under which the mailer embeds a data-URI
// attachment.
const EmbedName = "memory.jpg"

// UnlockMailData feeds the unlock notification template. AttachmentSrc is
// the image source for the attachment block: a cid reference for embedded
// data URIs, a plain URL otherwise, or empty for no attachment.
type UnlockMailData struct {
	SenderName    string
	Title         string
	Message       string
	SealedOn      time.Time
	AttachmentSrc string
}

var unlockMailTmpl = template.Must(template.New("unlock").Parse(`<div style="font-family: sans-serif; padding: 20px; background: #f5f5f5;">
  <div style="background: white; padding: 30px; border-radius: 10px; max-width: 600px; margin: auto;">
    <h1 style="color: #6b21a8; text-align: center;">Time Capsule Unlocked</h1>
    <p style="font-size: 16px; color: #555;">Hello,</p>
    <p style="font-size: 16px; color: #555; line-height: 1.6;">
      <strong>{{.SenderName}}</strong> sealed a message for you on <strong>{{.SealedOn.Format "Jan 2, 2006"}}</strong>.
      The time has finally come to open it.
    </p>
    <hr style="border: 0; border-top: 1px solid #eee; margin: 30px 0;" />
    <h2 style="color: #333;">&quot;{{.Title}}&quot;</h2>
    <div style="background: #fafafa; padding: 20px; border-radius: 8px; border-left: 4px solid #6b21a8;">
      <p style="font-size: 16px; line-height: 1.8; color: #333; margin: 0; white-space: pre-wrap;">{{.Message}}</p>
    </div>
    {{if .Src}}
    <div style="margin-top: 30px; text-align: center;">
      <p style="font-weight: bold; color: #555;">Attached Memory:</p>
      <img src="{{.Src}}" alt="Attached Memory" style="max-width: 100%; border-radius: 8px;" />
    </div>
    {{end}}
    <hr style="border: 0; border-top: 1px solid #eee; margin: 30px 0;" />
    <p style="font-size: 12px; color: #888; text-align: center;">
      Powered by GhostPost - Digital Legacy Vault
    </p>
  </div>
</div>`))

// RenderUnlockMail renders the subject and HTML body for an unlock
// notification.
func RenderUnlockMail(data UnlockMailData) (subject, body string, err error) {
	if data.SenderName == "" {
		data.SenderName = "A Friend"
	}

	// The cid: scheme is outside html/template's safe-URL list, so the
	// source is marked trusted explicitly. It is built server-side, never
	// from recipient input.
	view := struct {
		UnlockMailData
		Src template.URL
	}{UnlockMailData: data, Src: template.URL(data.AttachmentSrc)}

	var buf bytes.Buffer
	if err := unlockMailTmpl.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("failed to render unlock mail: %w", err)
	}

	subject = fmt.Sprintf("Start Your Legacy: A Message from %s", data.SenderName)
	return subject, buf.String(), nil
}
