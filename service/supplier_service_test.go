package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/buildgrid/sitewise/models"
)

func TestCanDeliveryTransition(t *testing.T) {
	cases := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"ordered to confirmed", model.DeliveryOrdered, model.DeliveryConfirmed, true},
		{"ordered to rejected", model.DeliveryOrdered, model.DeliveryRejected, true},
		{"ordered skipping to delivered", model.DeliveryOrdered, model.DeliveryDelivered, false},
		{"confirmed to in_transit", model.DeliveryConfirmed, model.DeliveryInTransit, true},
		{"in_transit to delivered", model.DeliveryInTransit, model.DeliveryDelivered, true},
		{"in_transit to rejected", model.DeliveryInTransit, model.DeliveryRejected, true},
		{"delivered is terminal", model.DeliveryDelivered, model.DeliveryRejected, false},
		{"rejected is terminal", model.DeliveryRejected, model.DeliveryOrdered, false},
		{"backward move", model.DeliveryInTransit, model.DeliveryConfirmed, false},
		{"same status", model.DeliveryOrdered, model.DeliveryOrdered, false},
		{"unknown status", "lost", model.DeliveryDelivered, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanDeliveryTransition(tc.from, tc.to))
		})
	}
}
