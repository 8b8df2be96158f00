package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrivateTables(t *testing.T) {
	assert.True(t, ChangeEvent{Table: TableReadingProgress}.Private())
	assert.True(t, ChangeEvent{Table: TableNotifications}.Private())
	assert.False(t, ChangeEvent{Table: TableDiscussions}.Private())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	var p Publisher = r
	p.PublishChange(ChangeEvent{Table: TableComments, Event: Insert})
	p.PublishChange(ChangeEvent{Table: TableDiscussions, Event: Update})
	assert.Equal(t, []string{"comments:INSERT", "discussions:UPDATE"}, r.Tables())

	assert.IsType(t, Nop{}, OrNop(nil))
	assert.Same(t, r, OrNop(r))
}

func TestOriginContext(t *testing.T) {
	ctx := WithOrigin(context.Background(), "client-a")
	assert.Equal(t, "client-a", OriginFrom(ctx))
	assert.Equal(t, "", OriginFrom(context.Background()))

	ev := New(ctx, TableComments, Insert, map[string]string{"id": "c1"}, nil)
	assert.Equal(t, "client-a", ev.Origin)
	assert.False(t, ev.Timestamp.IsZero())
}
