package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagmgr/internal/bus"
	"github.com/roach88/tagmgr/internal/manifest"
	"github.com/roach88/tagmgr/internal/match"
	"github.com/roach88/tagmgr/internal/unit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(t *testing.T, m *manifest.Manifest, opts ...Option) *Report {
	t.Helper()
	r, err := New(m, append([]Option{WithLogger(discardLogger())}, opts...)...)
	require.NoError(t, err)
	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	return rep
}

func traceText(t *testing.T, rep *Report) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, rep.WriteTrace(&buf))
	return buf.String()
}

func gated(path string) []match.Condition {
	return []match.Condition{{
		Param:     match.ParamPath,
		Condition: match.OpContains,
		Values:    &match.Values{Scalar: path},
	}}
}

func TestRun_EagerInline(t *testing.T) {
	rep := run(t, &manifest.Manifest{
		Name: "inline",
		Units: []unit.Descriptor{
			{ID: "a", Type: unit.KindJS, Src: "track()"},
			{ID: "b", Type: unit.KindHTML, Src: "<p>hi</p>"},
		},
	})

	// Inline nodes load during injection, so "loaded" is published before
	// "appended" and delivered on a later turn.
	assert.Equal(t, `1 async loaded.a
2 sync appended.a
3 async loaded.b
4 sync appended.b
5 async all-work-done
6 async dom-content-loaded (no subscribers)
7 async page-load (no subscribers)
`, traceText(t, rep))

	assert.True(t, rep.Done)
	assert.False(t, rep.Stalled)
	assert.Equal(t, 0, rep.Pending)
	assert.Equal(t, 0, rep.Queued)
	assert.Equal(t, []string{"a", "b"}, rep.Units)
	assert.Equal(t, "a", rep.Trace[0].UnitID)
	assert.Empty(t, rep.Trace[4].UnitID)
	require.Len(t, rep.Body, 2)
	assert.Equal(t, "track()", rep.Body[0].Text)
	assert.Equal(t, "<p>hi</p>", rep.Body[1].HTML)
}

func TestRun_SerialGated(t *testing.T) {
	rep := run(t, &manifest.Manifest{
		Name:   "gated",
		Serial: true,
		Page:   manifest.Page{URL: "https://shop.example.com/checkout"},
		Units: []unit.Descriptor{
			{ID: "s1", Type: unit.KindScript, Src: "a.js"},
			{ID: "gated", Type: unit.KindJS, Src: "x()", Match: gated("/cart")},
			{ID: "s2", Type: unit.KindScript, Src: "b.js"},
		},
	})

	assert.Equal(t, `1 sync appended.s1 (no subscribers)
2 async loaded.s1
3 sync ignored.gated
4 sync appended.s2 (no subscribers)
5 async loaded.s2
6 async all-work-done
7 async dom-content-loaded (no subscribers)
8 async page-load (no subscribers)
`, traceText(t, rep))

	assert.True(t, rep.Done)
	assert.True(t, rep.Serial)
	assert.Equal(t, []string{"s1", "gated", "s2"}, rep.Units)
	assert.Len(t, rep.Body, 2)
}

func TestRun_FailingScriptStalls(t *testing.T) {
	rep := run(t, &manifest.Manifest{
		Name:   "stall",
		Serial: true,
		Page:   manifest.Page{Failing: []string{"down.js"}},
		Units: []unit.Descriptor{
			{ID: "s1", Type: unit.KindScript, Src: "down.js"},
			{ID: "s2", Type: unit.KindScript, Src: "b.js"},
		},
	})

	assert.False(t, rep.Done)
	assert.True(t, rep.Stalled)
	assert.Equal(t, 2, rep.Pending)
	assert.Equal(t, 1, rep.Queued)
	assert.Equal(t, `1 sync appended.s1 (no subscribers)
2 async dom-content-loaded (no subscribers)
3 async page-load (no subscribers)
`, traceText(t, rep))

	var buf bytes.Buffer
	require.NoError(t, rep.WriteSummary(&buf))
	assert.Equal(t, "done: false pending: 2 queued: 1\n", buf.String())
}

func TestRun_OnLoadAndHead(t *testing.T) {
	rep := run(t, &manifest.Manifest{
		Name: "onload",
		Units: []unit.Descriptor{
			{ID: "lib", Type: unit.KindScript, Src: "lib.js", OnLoad: "lib.init()", Inject: unit.Inject{Target: unit.TargetHead}},
		},
	})

	assert.True(t, rep.Done)
	assert.Equal(t, []string{"lib.init()"}, rep.Executed)
	require.Len(t, rep.Head, 1)
	assert.Equal(t, "lib.js", rep.Head[0].Src)
	assert.True(t, rep.Head[0].Async)
	assert.Empty(t, rep.Body)
}

func TestRun_BlockScript(t *testing.T) {
	units := []unit.Descriptor{{ID: "blk", Type: unit.KindBlockScript, Src: "blk.js"}}

	t.Run("while parsing", func(t *testing.T) {
		rep := run(t, &manifest.Manifest{Name: "blk", Units: units})

		assert.True(t, rep.Done)
		assert.Equal(t, []string{"blk"}, rep.Units)
		require.Len(t, rep.Body, 1)
		assert.True(t, rep.Body[0].Blocking)
	})

	t.Run("after ready", func(t *testing.T) {
		rep := run(t, &manifest.Manifest{Name: "blk", Page: manifest.Page{Ready: true}, Units: units})

		assert.True(t, rep.Done)
		assert.Equal(t, []string{"blk", "blk_1"}, rep.Units)
		require.Len(t, rep.Body, 1)
		assert.False(t, rep.Body[0].Blocking)
		assert.Equal(t, "blk_1", rep.Body[0].ID)
		assert.Equal(t, `1 async dom-content-loaded (no subscribers)
2 sync ignored.blk
3 sync appended.blk_1
4 async loaded.blk_1
5 async all-work-done
6 async page-load (no subscribers)
`, traceText(t, rep))
	})
}

func TestRun_Options(t *testing.T) {
	m := &manifest.Manifest{
		Name: "opts",
		Units: []unit.Descriptor{
			{ID: "s1", Type: unit.KindScript, Src: "a.js"},
			{ID: "gated", Type: unit.KindJS, Src: "x()", Match: gated("/cart")},
		},
	}

	var tapped []string
	r, err := New(m,
		WithLogger(discardLogger()),
		WithSerial(true),
		WithPageDefaults(manifest.Page{URL: "https://shop.example.com/cart"}),
		WithTap(func(ev bus.Event) { tapped = append(tapped, ev.Topic) }),
	)
	require.NoError(t, err)
	assert.True(t, r.Serial())

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Done)
	assert.Contains(t, tapped, "appended.gated")
	assert.NotContains(t, tapped, "ignored.gated")
	assert.Len(t, tapped, len(rep.Trace))
}

func TestRun_UncaughtErrors(t *testing.T) {
	r, err := New(&manifest.Manifest{
		Name:  "errors",
		Units: []unit.Descriptor{{ID: "a", Type: unit.KindJS, Src: "x()"}},
	}, WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = r.Scheduler().Subscribe("loaded", bus.HandlerFunc(func(bus.Message) error {
		return errors.New("boom")
	}))
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Done)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "boom")
}

func TestRun_Cancelled(t *testing.T) {
	r, err := New(&manifest.Manifest{
		Name:  "cancel",
		Units: []unit.Descriptor{{ID: "a", Type: unit.KindScript, Src: "a.js"}},
	}, WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&manifest.Manifest{Name: "x", Page: manifest.Page{Now: "soon"}})
	assert.Error(t, err)
}

func TestMergePage(t *testing.T) {
	got := mergePage(
		manifest.Page{URL: "https://a.example.com/", Failing: []string{"x.js"}},
		manifest.Page{URL: "https://b.example.com/", Cookies: "c=1", Now: "2024-03-13"},
	)
	assert.Equal(t, manifest.Page{
		URL:     "https://a.example.com/",
		Cookies: "c=1",
		Now:     "2024-03-13",
		Failing: []string{"x.js"},
	}, got)
}
