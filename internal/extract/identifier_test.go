package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderID(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{name: "labeled with hash", text: "Payment link for Order #5307", want: "5307", ok: true},
		{name: "labeled without hash", text: "your order 5307 has shipped", want: "5307", ok: true},
		{name: "bare hash", text: "Invoice #5307", want: "5307", ok: true},
		{name: "parenthesized six digits", text: "New customer order (#526100)", want: "526100", ok: true},
		{name: "parenthesized four digits", text: "New customer order (#5261)", want: "5261", ok: true},
		{name: "order id label", text: "Order ID: 531900", want: "531900", ok: true},
		{name: "standalone fallback", text: "re: 5299 kitchen quote", want: "5299", ok: true},
		{name: "labeled wins over standalone", text: "1234 ref order #5307", want: "5307", ok: true},
		{name: "no identifier", text: "thanks for your business", ok: false},
		{name: "too short", text: "ref 999", ok: false},
		{name: "empty", text: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OrderID(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPaymentOrderIDs(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want []string
	}{
		{name: "leading hyphen", desc: "5299-Creative Spaces", want: []string{"5299"}},
		{name: "two orders ampersand", desc: "5317 & 5319 G&B CFC", want: []string{"5317", "5319"}},
		{name: "single with company", desc: "5184 Broke and Poor CFC", want: []string{"5184"}},
		{name: "labeled", desc: "Order #5299 Smith Kitchen", want: []string{"5299"}},
		{name: "comma separated", desc: "5301, 5302, 5303 Johnson", want: []string{"5301", "5302", "5303"}},
		{name: "trailing number", desc: "CFC Payment 5288", want: []string{"5288"}},
		{name: "fallback non five prefix", desc: "4021 Williams - Final", want: []string{"4021"}},
		{name: "leading and prefixed dedupe", desc: "5299-5299 Creative", want: []string{"5299"}},
		{name: "no ids", desc: "misc deposit", want: nil},
		{name: "empty", desc: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PaymentOrderIDs(tt.desc)
			assert.Equal(t, tt.want, got)
		})
	}
}
