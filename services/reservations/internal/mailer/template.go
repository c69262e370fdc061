package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

const confirmationSubject = "Your book fair stall reservation"

var confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation_html").Parse(`
<h2>Reservation confirmed</h2>
<p>Hi {{if .PublisherName}}{{.PublisherName}}{{else}}there{{end}},</p>
<p>Your stalls are reserved: <strong>{{.StallList}}</strong></p>
<p>Reservation ID: {{.ReservationID}}</p>
<p>Show this QR code at the entrance:</p>
<p><img src="{{.QRURL}}" alt="Reservation QR code" width="256" height="256"></p>
`))

var confirmationText = texttemplate.Must(texttemplate.New("confirmation_text").Parse(
	`Your stalls are reserved: {{.StallList}}
Reservation ID: {{.ReservationID}}
QR code: {{.QRURL}}
`))

type confirmationView struct {
	PublisherName string
	ReservationID string
	StallList     string
	QRURL         string
}

type renderedEmail struct {
	Subject string
	Text    string
	HTML    string
}

func renderConfirmation(msg domain.ConfirmationEmail) (*renderedEmail, error) {
	view := confirmationView{
		PublisherName: msg.PublisherName,
		ReservationID: msg.ReservationID,
		StallList:     strings.Join(msg.Stalls, ", "),
		QRURL:         msg.QRURL,
	}

	var html, text bytes.Buffer
	if err := confirmationHTML.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := confirmationText.Execute(&text, view); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}

	return &renderedEmail{
		Subject: confirmationSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
