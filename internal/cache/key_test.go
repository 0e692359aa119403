package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"escrowScope/internal/model"
)

func TestKeyIsOrderIndependent(t *testing.T) {
	a := Key(1, model.EventPaymentReleased, []string{"3", "1", "2"})
	b := Key(1, model.EventPaymentReleased, []string{"1", "2", "3"})
	assert.Equal(t, a, b)
	assert.Equal(t, "1:payment_released:1,2,3", a)
}

func TestKeyCanonicalizesIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{name: "numeric order", ids: []string{"10", "9", "100"}, want: "5:disputed:9,10,100"},
		{name: "duplicates", ids: []string{"2", "2", " 2 "}, want: "5:disputed:2"},
		{name: "hex", ids: []string{"0x0a", "3"}, want: "5:disputed:3,10"},
		{name: "empty", ids: nil, want: "5:disputed:"},
		{name: "non numeric last", ids: []string{"b", "7", "a"}, want: "5:disputed:7,a,b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(5, model.EventDisputed, tt.ids))
		})
	}
}

func TestKeySeparatesChainsAndKinds(t *testing.T) {
	ids := []string{"1"}
	assert.NotEqual(t, Key(1, model.EventDisputed, ids), Key(2, model.EventDisputed, ids))
	assert.NotEqual(t, Key(1, model.EventDisputed, ids), Key(1, model.EventWorkRejected, ids))
}
