package page

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagmgr/internal/bus"
	"github.com/roach88/tagmgr/internal/loop"
	"github.com/roach88/tagmgr/internal/scheduler"
	"github.com/roach88/tagmgr/internal/unit"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInject_Positions(t *testing.T) {
	l := loop.New()
	d := New(l, WithLogger(discard()))

	require.True(t, d.Inject(unit.Node{Kind: unit.NodeHTML, HTML: "<p>1</p>"}, unit.TargetBody, unit.AtEnd))
	require.True(t, d.Inject(unit.Node{Kind: unit.NodeHTML, HTML: "<p>2</p>"}, unit.TargetBody, unit.AtEnd))
	require.True(t, d.Inject(unit.Node{Kind: unit.NodeHTML, HTML: "<p>0</p>"}, unit.TargetBody, unit.AtStart))
	require.True(t, d.Inject(unit.Node{Kind: unit.NodeScript, ID: "h", Src: "h.js", Async: true}, unit.TargetHead, unit.AtStart))

	body := d.Body()
	require.Len(t, body, 3)
	assert.Equal(t, "<p>0</p>", body[0].HTML)
	assert.Equal(t, "<p>1</p>", body[1].HTML)
	assert.Equal(t, "<p>2</p>", body[2].HTML)

	assert.Equal(t, []Element{{Kind: unit.NodeScript, ID: "h", Src: "h.js", Async: true}}, d.Head())
}

func TestInject_Rejects(t *testing.T) {
	d := New(loop.New(), WithLogger(discard()))

	assert.False(t, d.Inject(unit.Node{Kind: unit.NodeHTML}, "footer", unit.AtEnd))
	assert.False(t, d.Inject(unit.Node{Kind: unit.NodeHTML}, unit.TargetBody, "middle"))
	assert.Empty(t, d.Body())
	assert.Empty(t, d.Head())
}

func TestInject_LoadTiming(t *testing.T) {
	l := loop.New()
	d := New(l, WithLogger(discard()), WithFailing("broken.js"))

	var loaded []string
	onLoad := func(name string) func() {
		return func() { loaded = append(loaded, name) }
	}

	d.Inject(unit.Node{Kind: unit.NodeScript, Src: "a.js", OnLoad: onLoad("a")}, unit.TargetBody, unit.AtEnd)
	d.Inject(unit.Node{Kind: unit.NodeScript, Text: "inline()", OnLoad: onLoad("inline")}, unit.TargetBody, unit.AtEnd)
	d.Inject(unit.Node{Kind: unit.NodeScript, Src: "broken.js", OnLoad: onLoad("broken")}, unit.TargetBody, unit.AtEnd)
	d.Inject(unit.Node{Kind: unit.NodeHTML, HTML: "<b>x</b>", OnLoad: onLoad("html")}, unit.TargetBody, unit.AtEnd)
	d.Inject(unit.Node{Kind: unit.NodeScript, Src: "b.js", OnLoad: onLoad("b")}, unit.TargetBody, unit.AtEnd)
	d.Inject(unit.Node{Kind: unit.NodeScript, Src: "c.js"}, unit.TargetBody, unit.AtEnd)

	assert.Equal(t, []string{"inline", "html"}, loaded, "inline nodes load during injection")

	l.Drain()
	assert.Equal(t, []string{"inline", "html", "a", "b"}, loaded, "external scripts load in injection order")
	assert.Len(t, d.Body(), 6, "failing scripts are still in the document")
}

func TestReadyAndExec(t *testing.T) {
	d := New(loop.New())
	assert.False(t, d.Ready())
	d.SetReady()
	assert.True(t, d.Ready())

	assert.True(t, New(loop.New(), WithReady(true)).Ready())

	d.Exec("a()")
	d.Exec("b()")
	assert.Equal(t, []string{"a()", "b()"}, d.Executed())
}

// topicLog records the topics it receives.
type topicLog struct {
	topics []string
}

func (l *topicLog) HandleMessage(msg bus.Message) error {
	l.topics = append(l.topics, msg.Topic)
	return nil
}

func TestDocument_DrivesScheduler(t *testing.T) {
	l := loop.New(loop.WithErrorHandler(func(err error) {
		t.Errorf("uncaught error: %v", err)
	}))
	d := New(l, WithLogger(discard()))
	f := unit.NewFactory(d, l, unit.WithLogger(discard()))
	s := scheduler.New(l, f,
		scheduler.WithLogger(discard()),
		scheduler.WithDescriptors(
			unit.Descriptor{ID: "lib", Type: unit.KindScript, Src: "lib.js", Inject: unit.Inject{Target: unit.TargetHead}, OnLoad: "lib.init()"},
			unit.Descriptor{ID: "inline", Type: unit.KindJS, Src: "track()"},
			unit.Descriptor{ID: "frag", Type: unit.KindHTML, Src: `<div id="w"></div><script src="widget.js"></script>`},
		),
	)

	done := &topicLog{}
	_, err := s.Subscribe(scheduler.TopicAllWorkDone, done)
	require.NoError(t, err)

	s.DispatchNext()
	l.Drain()

	assert.Equal(t, []string{scheduler.TopicAllWorkDone}, done.topics)
	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.Paused())
	assert.Equal(t, []string{"lib.init()"}, d.Executed())

	assert.Equal(t, []Element{{Kind: unit.NodeScript, ID: "lib", Src: "lib.js", Async: true, Defer: true}}, d.Head())

	body := d.Body()
	require.Len(t, body, 3)
	assert.Equal(t, "track()", body[0].Text)
	assert.Equal(t, `<div id="w"></div>`, body[1].HTML)
	assert.Equal(t, "widget.js", body[2].Src)
}

func TestDocument_FailingScriptStalls(t *testing.T) {
	l := loop.New()
	d := New(l, WithLogger(discard()), WithFailing("down.js"))
	f := unit.NewFactory(d, l, unit.WithLogger(discard()))
	s := scheduler.New(l, f,
		scheduler.WithSerial(true),
		scheduler.WithLogger(discard()),
		scheduler.WithDescriptors(
			unit.Descriptor{ID: "down", Type: unit.KindScript, Src: "down.js"},
			unit.Descriptor{ID: "next", Type: unit.KindScript, Src: "next.js"},
		),
	)

	s.DispatchNext()
	l.Drain()

	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 1, s.QueueLen(), "serial mode waits on the failed script")
	assert.Len(t, d.Body(), 1)
}
