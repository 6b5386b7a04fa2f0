// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

// bookingTemplate escapes every guest-supplied value.
var bookingTemplate = template.Must(template.New("booking").Funcs(template.FuncMap{
	"money": func(v *float64, currency string) string {
		if v == nil {
			return "Not quoted"
		}
		return fmt.Sprintf("%.2f %s", *v, currency)
	},
	"orDefault": func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	},
}).Parse(`<h2>New Booking Request</h2>
{{- if .PropertyTitle}}
<p><strong>Property:</strong> {{.PropertyTitle}}</p>
{{- end}}
<p><strong>Guest:</strong> {{.GuestName}}</p>
<p><strong>Email:</strong> {{.GuestEmail}}</p>
<p><strong>Phone:</strong> {{orDefault .GuestPhone "Not provided"}}</p>
<p><strong>Check-in:</strong> {{.CheckIn}}</p>
<p><strong>Check-out:</strong> {{.CheckOut}}</p>
<p><strong>Nights:</strong> {{.Nights}}</p>
<p><strong>Guests:</strong> {{.Guests}}</p>
<p><strong>Estimated total:</strong> {{money .TotalAmount .Currency}}</p>
<p><strong>Special Requests:</strong> {{orDefault .SpecialRequests "None"}}</p>
<p><strong>Status:</strong> {{.Status}}</p>
{{- if .GuestyBookingID}}
<p><strong>Guesty ID:</strong> {{.GuestyBookingID}}</p>
{{- end}}
<p><small>Booking reference {{.BookingID}}</small></p>
`))

// RenderHTML renders the HTML body of a notice.
func RenderHTML(n *Notice) (string, error) {
	var buf bytes.Buffer
	if err := bookingTemplate.Execute(&buf, n); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}
