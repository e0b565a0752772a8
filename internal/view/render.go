// Package view renders the cart modal contents. Free-text fields go
// through html/template so item names are escaped before they reach the
// page.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/fjod/cart-widget/internal/domain"
)

const cartTemplate = `{{if not .Items}}<div class="empty-state">
    <p>Seu carrinho está vazio</p>
    <button class="btn btn-primary mt-3" data-action="continue-shopping">
        Continuar Comprando
    </button>
</div>
<div class="cart-total" id="cartTotal">Total: {{.Currency}} 0,00</div>
{{else}}{{$c := .Currency}}{{range $i, $item := .Items}}<div class="cart-item">
    <div class="cart-item-info">
        <div class="cart-item-name">{{$item.Name}}</div>
        <div class="cart-item-price">
            {{$c}} {{price $item.Price}} x {{$item.Quantity}} = {{$c}} {{price (lineTotal $item)}}
        </div>
    </div>
    <div class="cart-item-actions">
        <div class="quantity-controls mb-2">
            <button class="btn btn-small" data-action="change-quantity" data-index="{{$i}}" data-delta="-1">-</button>
            <span class="quantity-display">{{$item.Quantity}}</span>
            <button class="btn btn-small" data-action="change-quantity" data-index="{{$i}}" data-delta="1">+</button>
        </div>
        <button class="btn btn-danger btn-small" data-action="remove-item" data-index="{{$i}}">
            Remover
        </button>
    </div>
</div>
{{end}}<div class="cart-total" id="cartTotal">Total: {{.Currency}} {{price .Total}}</div>
{{end}}`

type Renderer struct {
	tmpl     *template.Template
	currency string
}

// NewRenderer builds a renderer with the given currency prefix, e.g. "R$".
func NewRenderer(currency string) *Renderer {
	funcs := template.FuncMap{
		"price": FormatPrice,
		"lineTotal": func(item domain.LineItem) float64 {
			return item.Price * float64(item.Quantity)
		},
	}
	return &Renderer{
		tmpl:     template.Must(template.New("cart").Funcs(funcs).Parse(cartTemplate)),
		currency: currency,
	}
}

// RenderItems produces the modal fragment: one row per line item, or the
// empty-state block, followed by the grand total.
func (r *Renderer) RenderItems(items []domain.LineItem, total float64) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, struct {
		Items    []domain.LineItem
		Total    float64
		Currency string
	}{items, total, r.currency})
	if err != nil {
		return "", fmt.Errorf("failed to render cart: %w", err)
	}
	return buf.String(), nil
}

// FormatPrice renders a price with two fixed decimals and a comma
// decimal separator. Display formatting only; the underlying totals stay
// unrounded.
func FormatPrice(price float64) string {
	return strings.Replace(strconv.FormatFloat(price, 'f', 2, 64), ".", ",", 1)
}
