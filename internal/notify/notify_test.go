package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/eventstore"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/veto"
)

func TestNewInconsistencyEvent(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	d := veto.Decision{
		Outcome:        veto.OutcomeInconsistent,
		Reason:         veto.ReasonOutOfDate,
		TriggerChanges: 2,
		StatusChanges:  1,
		NewerTriggers:  1,
		LatestStatus:   now.Add(-time.Minute),
		NewestTrigger:  now.Add(-time.Second),
	}
	ev := NewInconsistencyEvent(eventstore.NewEvaluation("app", now.Add(-time.Hour), now, d, nil, time.Second))

	assert.Equal(t, "app", ev.Project)
	assert.NotEmpty(t, ev.EvaluationID)
	assert.Equal(t, veto.ReasonOutOfDate, ev.Reason)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2024-06-01T07:59:59Z", decoded["newest_trigger"])
	assert.InDelta(t, 1, decoded["newer_triggers"], 0)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishInconsistency(context.Background(), InconsistencyEvent{}))
	assert.NoError(t, p.Close())
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect(config.NotifyConfig{}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(config.NotifyConfig{NATSURL: "nats://127.0.0.1:1", Timeout: 200 * time.Millisecond}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}
