package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/pipeline"
)

type staticRetriever []*core.Candidate

func (r staticRetriever) Retrieve(context.Context, string, int, map[string]any) ([]*core.Candidate, error) {
	return core.CloneAll(r), nil
}

func newCollector(t *testing.T) *Collector {
	c, err := NewCollector(prometheus.NewRegistry(), WithNamespace("test"), WithLogger(nil))
	require.NoError(t, err)
	return c
}

func TestNewCollector(t *testing.T) {
	_, err := NewCollector(nil)
	assert.ErrorIs(t, err, ErrRegistererRequired)

	reg := prometheus.NewRegistry()
	_, err = NewCollector(reg)
	require.NoError(t, err)

	t.Run("duplicate registration", func(t *testing.T) {
		var already prometheus.AlreadyRegisteredError
		_, err := NewCollector(reg)
		require.Error(t, err)
		assert.ErrorAs(t, err, &already)
	})

	t.Run("other namespace on the same registerer", func(t *testing.T) {
		c, err := NewCollector(reg, WithNamespace("other"))
		require.NoError(t, err)
		c.Start("run", "q")
		assert.Equal(t, 1.0, testutil.ToFloat64(c.inFlight))
	})

	t.Run("failed registration leaves nothing behind", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		require.NoError(t, reg.Register(prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clash",
			Name:      "runs_in_flight",
			Help:      "registered first",
		})))

		_, err := NewCollector(reg, WithNamespace("clash"))
		require.Error(t, err)

		families, err := reg.Gather()
		require.NoError(t, err)
		require.Len(t, families, 1)
		assert.Equal(t, "clash_runs_in_flight", families[0].GetName())
	})
}

func TestCollector_StageFinished(t *testing.T) {
	c := newCollector(t)

	c.StageFinished("run", pipeline.StageStats{Name: pipeline.StageRerank, Input: 5, Output: 3, Duration: time.Millisecond})
	c.StageFinished("run", pipeline.StageStats{Name: pipeline.StageRerank, Input: 3, Output: 3, Degraded: true})
	c.StageFinished("run", pipeline.StageStats{Name: pipeline.StageSourceFilter, Input: 3, Output: 3, Skipped: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.stagesTotal.WithLabelValues(pipeline.StageRerank, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stagesTotal.WithLabelValues(pipeline.StageRerank, "degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stagesTotal.WithLabelValues(pipeline.StageSourceFilter, "skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.stageRemoved.WithLabelValues(pipeline.StageRerank)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.stageDuration))
}

func TestCollector_Finish(t *testing.T) {
	c := newCollector(t)

	c.Start("a", "q")
	c.Start("b", "q")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.inFlight))

	c.Finish("a", &pipeline.Result{NoInformation: true, MemoryUsed: true, Cost: 0.25, ProcessingTime: time.Second})
	c.Finish("b", nil)

	assert.Zero(t, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.runsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.noInformation))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.memoryUsed))
	assert.InDelta(t, 0.25, testutil.ToFloat64(c.costTotal), 1e-12)
}

func TestCollector_ObservesPipeline(t *testing.T) {
	c := newCollector(t)
	cand, err := core.NewCandidate("营收为577.96亿元", map[string]any{
		core.MetaDocumentName: "smic-2024.pdf",
		core.MetaPageNumber:   3,
		core.MetaChunkType:    "text",
	}, 0.9)
	require.NoError(t, err)

	orch, err := pipeline.New(staticRetriever{cand}, mock.NewMockGenerator(), pipeline.WithMonitor(c))
	require.NoError(t, err)

	_, err = orch.Process(context.Background(), pipeline.Request{Query: "营收"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stagesTotal.WithLabelValues(pipeline.StageRetrieve, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stagesTotal.WithLabelValues(pipeline.StageGenerate, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stagesTotal.WithLabelValues(pipeline.StageRerank, "skipped")))
	assert.Greater(t, testutil.ToFloat64(c.costTotal), 0.0)
}
