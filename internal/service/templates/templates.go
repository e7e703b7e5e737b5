// Package templates renders the transactional email bodies. All renderers
// are pure: they map an order aggregate to an HTML document and have no
// side effects.
package templates

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/unihub/notify-svc/internal/service/models/order"
)

const (
	brandColor         = "#4A90E2"
	logoURL            = "https://cdn.unihub.africa/logo.png"
	sellerDashboardURL = "https://sellers.unihub.africa"
)

var funcs = template.FuncMap{
	// naira formats a monetary amount with the currency sign and two
	// decimals.
	"naira": func(amount float64) string {
		return fmt.Sprintf("₦%.2f", amount)
	},
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta http-equiv="X-UA-Compatible" content="IE=edge">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style type="text/css">
    body, table, td, a { -webkit-text-size-adjust: 100%; -ms-text-size-adjust: 100%; }
    table, td { mso-table-lspace: 0pt; mso-table-rspace: 0pt; }
    img { -ms-interpolation-mode: bicubic; border: 0; height: auto; line-height: 100%; outline: none; text-decoration: none; }
    body { height: 100% !important; margin: 0 !important; padding: 0 !important; width: 100% !important; font-family: 'Arial', sans-serif; }
    .wrapper { background-color: #f4f4f4; width: 100%; }
    .container { max-width: 600px; margin: 0 auto; }
    .header { padding: 20px 0; text-align: center; }
    .content { background-color: #ffffff; padding: 24px; border-radius: 8px; }
    .content p { margin: 0 0 16px; font-size: 16px; line-height: 24px; color: #555555; }
    .content h2 { margin: 0 0 24px; font-size: 24px; font-weight: bold; color: #333333; }
    .button { display: inline-block; background-color: ` + brandColor + `; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 5px; font-weight: bold; }
    .order-details { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
    .order-details th, .order-details td { border: 1px solid #dddddd; padding: 12px; text-align: left; }
    .order-details th { background-color: #f9f9f9; }
    .footer { padding: 24px; text-align: center; font-size: 14px; color: #888888; }
    .footer p { margin: 0 0 8px; }
  </style>
</head>
<body>
  <table border="0" cellpadding="0" cellspacing="0" width="100%" class="wrapper">
    <tr>
      <td align="center" valign="top">
        <table border="0" cellpadding="0" cellspacing="0" width="100%" class="container">
          <tr>
            <td align="center" class="header">
              <img src="` + logoURL + `" alt="UniHub Logo" width="150" style="display: block;"/>
            </td>
          </tr>
          <tr>
            <td class="content">
              {{.Content}}
            </td>
          </tr>
          <tr>
            <td class="footer">
              <p>© 2025 UniHub, Lagos, Nigeria.</p>
              <p>All rights reserved.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`

const buyerPlacedHTML = `<h2>Order Confirmed!</h2>
<p>Hi {{.Buyer.FullName}},</p>
<p>Your order (<b>{{.OrderNumber}}</b>) has been successfully placed and is now confirmed. The seller has been notified.</p>
<p>Your payment is being held securely in escrow until you confirm delivery.</p>
<table class="order-details">
  <tr><th>Product</th><td>{{.Product.Name}}</td></tr>
  <tr><th>Total Amount</th><td><b>{{naira .TotalAmount}}</b></td></tr>
  <tr><th>Payment Status</th><td>{{.PaymentStatus}} ({{.PaymentMethod}})</td></tr>
  <tr><th>Your Delivery Code</th><td><h3 style="margin:0; color:` + brandColor + `;">{{.DeliveryCode}}</h3></td></tr>
</table>
<p><b>Next Step:</b> Please share this 6-digit delivery code with the seller ONLY when you have received and verified your item.</p>
<p>Thank you for trading safely on UniHub!</p>
`

const sellerPlacedHTML = `<h2>You Have a New Order!</h2>
<p>Hi {{.Seller.FullName}},</p>
<p>A new order (<b>{{.OrderNumber}}</b>) has been placed for one of your items. The buyer's payment is now secured in escrow.</p>
<p style="color:red; font-weight:bold;">Please contact the buyer to arrange delivery within 5 days.</p>
<table class="order-details">
  <tr><th>Product</th><td>{{.Product.Name}}</td></tr>
  <tr><th>Amount (in Escrow)</th><td><b>{{naira .TotalAmount}}</b></td></tr>
  <tr><th>Buyer Name</th><td>{{.Buyer.FullName}}</td></tr>
  <tr><th>Buyer Phone</th><td>{{if .Buyer.PhoneNumber}}{{.Buyer.PhoneNumber}}{{else}}Not provided{{end}}</td></tr>
</table>
<p><b>Next Step:</b> Once you deliver the item, collect the 6-digit delivery code from the buyer to confirm the transaction and receive your payout.</p>
<p align="center" style="margin-top: 24px;">
  <a href="` + sellerDashboardURL + `" class="button">View Order in Dashboard</a>
</p>
`

const buyerCancelledHTML = `<h2>Order Cancelled</h2>
<p>Hi {{.Buyer.FullName}},</p>
<p>Your order (<b>{{.OrderNumber}}</b>) for <b>{{.Product.Name}}</b> has been cancelled.</p>
<p>If you have already paid, your funds of {{naira .TotalAmount}} held in escrow will be refunded to you shortly.</p>
<p>We're sorry this didn't work out. You can continue browsing for other items on UniHub.</p>
`

const sellerCancelledHTML = `<h2>Order Cancelled</h2>
<p>Hi {{.Seller.FullName}},</p>
<p>The order (<b>{{.OrderNumber}}</b>) from <b>{{.Buyer.FullName}}</b> for your item <b>{{.Product.Name}}</b> ({{naira .TotalAmount}}) has been cancelled.</p>
<p>This item is now back in your inventory. No further action is needed from you for this order.</p>
<p align="center" style="margin-top: 24px;">
  <a href="` + sellerDashboardURL + `" class="button">Go to Your Dashboard</a>
</p>
`

var (
	layoutTmpl          = template.Must(template.New("layout").Parse(layoutHTML))
	buyerPlacedTmpl     = template.Must(template.New("buyer_placed").Funcs(funcs).Parse(buyerPlacedHTML))
	sellerPlacedTmpl    = template.Must(template.New("seller_placed").Funcs(funcs).Parse(sellerPlacedHTML))
	buyerCancelledTmpl  = template.Must(template.New("buyer_cancelled").Funcs(funcs).Parse(buyerCancelledHTML))
	sellerCancelledTmpl = template.Must(template.New("seller_cancelled").Funcs(funcs).Parse(sellerCancelledHTML))
)

// BuyerPlaced renders the buyer's order confirmation email.
func BuyerPlaced(o *order.Order) (string, error) {
	return render(buyerPlacedTmpl, o)
}

// SellerPlaced renders the seller's new order email.
func SellerPlaced(o *order.Order) (string, error) {
	return render(sellerPlacedTmpl, o)
}

// BuyerCancelled renders the buyer's cancellation email.
func BuyerCancelled(o *order.Order) (string, error) {
	return render(buyerCancelledTmpl, o)
}

// SellerCancelled renders the seller's cancellation email.
func SellerCancelled(o *order.Order) (string, error) {
	return render(sellerCancelledTmpl, o)
}

func render(content *template.Template, o *order.Order) (string, error) {
	var inner bytes.Buffer
	if err := content.Execute(&inner, o); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", content.Name(), err)
	}

	var out bytes.Buffer
	err := layoutTmpl.Execute(&out, struct{ Content template.HTML }{Content: template.HTML(inner.String())})
	if err != nil {
		return "", fmt.Errorf("failed to render email layout: %w", err)
	}

	return out.String(), nil
}
