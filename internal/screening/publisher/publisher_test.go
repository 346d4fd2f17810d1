package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"screener/internal/screening/models"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

type recordingSink struct {
	got []string
	err error
}

func (r *recordingSink) Publish(_ context.Context, result *models.ScreeningResult) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, result.AuditID)
	return nil
}

func sampleResult() *models.ScreeningResult {
	return &models.ScreeningResult{
		Symbol:       "ACME",
		AuditID:      "audit-7",
		FinalVerdict: models.VerdictReview,
		Confidence:   models.ConfidenceMedium,
		Reasons:      []string{},
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Run("produces keyed json", func(t *testing.T) {
		fake := &fakeProducer{}
		p := newKafkaPublisher(fake, WithTopic("results"))

		require.NoError(t, p.Publish(context.Background(), sampleResult()))
		require.Len(t, fake.records, 1)

		rec := fake.records[0]
		assert.Equal(t, "results", rec.Topic)
		assert.Equal(t, "ACME", string(rec.Key))
		assert.Equal(t, "audit_id", rec.Headers[0].Key)
		assert.Equal(t, "audit-7", string(rec.Headers[0].Value))

		var decoded models.ScreeningResult
		require.NoError(t, json.Unmarshal(rec.Value, &decoded))
		assert.Equal(t, models.VerdictReview, decoded.FinalVerdict)
	})

	t.Run("broker failure is returned", func(t *testing.T) {
		fake := &fakeProducer{err: errors.New("not leader")}
		p := newKafkaPublisher(fake)
		assert.Error(t, p.Publish(context.Background(), sampleResult()))
		assert.Equal(t, DefaultTopic, fake.records[0].Topic)
	})
}

func TestMultiSink(t *testing.T) {
	t.Run("fans out in order", func(t *testing.T) {
		a, b := &recordingSink{}, &recordingSink{}
		m := NewMultiSink(a, nil, b)
		assert.Equal(t, 2, m.Len())

		require.NoError(t, m.Publish(context.Background(), sampleResult()))
		assert.Equal(t, []string{"audit-7"}, a.got)
		assert.Equal(t, []string{"audit-7"}, b.got)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		failing := &recordingSink{err: errors.New("db down")}
		after := &recordingSink{}
		m := NewMultiSink(failing, after)

		err := m.Publish(context.Background(), sampleResult())
		assert.ErrorContains(t, err, "sink 1 of 2")
		assert.Empty(t, after.got)
	})
}
