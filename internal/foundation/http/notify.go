package http

import (
	"encoding/base64"
	"net/http"

	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
)

type NotifyHandler struct {
	Dispatch service.Enqueuer
}

// HandleEmail enqueues an outbound email. Attachments arrive base64 encoded.
func (h *NotifyHandler) HandleEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Recipient   string `json:"recipient"`
		Subject     string `json:"subject"`
		Body        string `json:"body"`
		Attachments []struct {
			Filename    string `json:"filename"`
			ContentType string `json:"content_type"`
			Data        string `json:"data"`
		} `json:"attachments"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.Recipient == "" {
		apix.RequiredField("recipient").Write(w)
		return
	}
	if req.Body == "" {
		apix.RequiredField("body").Write(w)
		return
	}

	attachments := make([]notify.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			apix.BadRequest("Attachment data must be base64.").Write(w)
			return
		}
		attachments = append(attachments, notify.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Data:        data,
		})
	}

	err := h.Dispatch.Enqueue(notify.Message{
		Channel:     notify.ChannelEmail,
		Recipient:   req.Recipient,
		Subject:     req.Subject,
		Body:        req.Body,
		Attachments: attachments,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// HandleWhatsApp enqueues an outbound WhatsApp message.
func (h *NotifyHandler) HandleWhatsApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Recipient string `json:"recipient"` // E.164
		Body      string `json:"body"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.Recipient == "" {
		apix.RequiredField("recipient").Write(w)
		return
	}
	if req.Body == "" {
		apix.RequiredField("body").Write(w)
		return
	}

	err := h.Dispatch.Enqueue(notify.Message{
		Channel:   notify.ChannelWhatsApp,
		Recipient: req.Recipient,
		Body:      req.Body,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusAccepted, map[string]string{"status": "queued"})
}
