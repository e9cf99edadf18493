package web

import (
	"bytes"
	"image/png"
	"net/http"
	"net/url"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const qrPath = "/pay/qr.png"

// gate describes how to buy access. It is shown instead of a result when
// the request carries no valid grant.
func (h *Handler) gate() *gateView {
	p := h.cfg.Payment
	g := &gateView{
		Price:     p.Price,
		UPIID:     p.UPIID,
		PayeeName: p.PayeeName,
		WhatsApp:  p.WhatsApp,
		Hours:     int(h.cfg.Access.GrantDuration().Hours()),
	}
	if p.UPIID != "" {
		g.QRPath = qrPath
	}
	return g
}

// paymentURI builds the UPI deep link encoded in the QR code.
func (h *Handler) paymentURI() string {
	p := h.cfg.Payment
	q := url.Values{}
	q.Set("pa", p.UPIID)
	if p.PayeeName != "" {
		q.Set("pn", p.PayeeName)
	}
	if p.AmountINR != "" {
		q.Set("am", p.AmountINR)
		q.Set("cu", "INR")
	}
	q.Set("tn", h.cfg.App.Name+" access")
	return "upi://pay?" + q.Encode()
}

func (h *Handler) handlePaymentQR(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Payment.UPIID == "" {
		http.NotFound(w, r)
		return
	}

	code, err := qr.Encode(h.paymentURI(), qr.M, qr.Auto)
	if err == nil {
		px := h.cfg.Payment.QRPixels
		code, err = barcode.Scale(code, px, px)
	}
	var buf bytes.Buffer
	if err == nil {
		err = png.Encode(&buf, code)
	}
	if err != nil {
		h.logger.Error("payment qr generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, "qr unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = buf.WriteTo(w)
}
