package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"storefront-svc/models"

	"github.com/shopspring/decimal"
)

var funcs = template.FuncMap{
	"money": func(v decimal.Decimal) string { return "₹" + v.StringFixed(2) },
}

var (
	orderPlacedTmpl = template.Must(template.New("order_placed").Funcs(funcs).Parse(`<h2>Thank you for your order, {{.Name}}!</h2>
<p>Your order <strong>#{{.ID}}</strong> has been placed.</p>
<table cellpadding="6" style="border-collapse:collapse">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Price}}</td></tr>
{{end}}</table>
<p><strong>Total: {{money .TotalAmount}}</strong><br>
Payment: {{if eq .PaymentMethod "cod"}}Cash on delivery{{else}}Paid online{{end}}</p>
<p>Shipping to:<br>{{.Address}}<br>{{.City}}, {{.State}} {{.Pincode}}<br>{{.Phone}}</p>`))

	newOrderAdminTmpl = template.Must(template.New("new_order_admin").Funcs(funcs).Parse(`<h2>New order #{{.ID}}</h2>
<p>{{.Name}} &lt;{{.Email}}&gt;, {{.Phone}}</p>
<ul>{{range .Items}}<li>{{.Quantity}} x {{.Name}} (#{{.ID}}) at {{money .Price}}</li>{{end}}</ul>
<p>Total {{money .TotalAmount}}, {{.PaymentMethod}} / {{.PaymentStatus}}</p>`))

	statusChangedTmpl = template.Must(template.New("status_changed").Parse(`<p>Hi {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},</p>
<p>Your order <strong>#{{.OrderID}}</strong> is now <strong>{{.OrderStatus}}</strong>.</p>`))

	supportAdminTmpl = template.Must(template.New("support_admin").Parse(`<h2>Support request: {{.Subject}}</h2>
<p>From {{.Name}} &lt;{{.Email}}&gt;{{if .OrderID}} about order #{{.OrderID}}{{end}}</p>
<p style="white-space:pre-wrap">{{.Message}}</p>`))

	supportAckTmpl = template.Must(template.New("support_ack").Parse(`<p>Hi {{.Name}},</p>
<p>We received your message "{{.Subject}}" and will get back to you within two working days.</p>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func orderPlacedEmails(order models.Order, adminEmail string) ([]Email, error) {
	customer, err := render(orderPlacedTmpl, order)
	if err != nil {
		return nil, err
	}
	emails := []Email{{
		To:      []string{order.Email},
		Subject: fmt.Sprintf("Order #%d confirmed", order.ID),
		HTML:    customer,
	}}

	if adminEmail != "" {
		admin, err := render(newOrderAdminTmpl, order)
		if err != nil {
			return nil, err
		}
		emails = append(emails, Email{
			To:      []string{adminEmail},
			ReplyTo: order.Email,
			Subject: fmt.Sprintf("New order #%d", order.ID),
			HTML:    admin,
		})
	}
	return emails, nil
}

func supportEmails(req models.SupportRequest, adminEmail string) ([]Email, error) {
	admin, err := render(supportAdminTmpl, req)
	if err != nil {
		return nil, err
	}
	ack, err := render(supportAckTmpl, req)
	if err != nil {
		return nil, err
	}
	return []Email{
		{To: []string{adminEmail}, ReplyTo: req.Email, Subject: "[Support] " + req.Subject, HTML: admin},
		{To: []string{req.Email}, Subject: "We received your message", HTML: ack},
	}, nil
}

var statusSubjects = map[models.OrderStatus]string{
	models.OrderStatusProcessing: "is being prepared",
	models.OrderStatusShipped:    "has shipped",
	models.OrderStatusDelivered:  "has been delivered",
	models.OrderStatusCancelled:  "has been cancelled",
}

// statusChangedEmail returns false for statuses customers are not told about.
func statusChangedEmail(event models.OrderEvent) (Email, bool, error) {
	subject, ok := statusSubjects[event.OrderStatus]
	if !ok || event.CustomerEmail == "" {
		return Email{}, false, nil
	}
	html, err := render(statusChangedTmpl, event)
	if err != nil {
		return Email{}, false, err
	}
	return Email{
		To:      []string{event.CustomerEmail},
		Subject: fmt.Sprintf("Your order #%d %s", event.OrderID, subject),
		HTML:    html,
	}, true, nil
}
