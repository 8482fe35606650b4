package memory

import "github.com/zoobzio/pulsewatch"

// introspector answers queries on the loop goroutine from a copy of the
// server tables taken when the query runs.
type introspector struct {
	c *conn
}

func (in introspector) SinkInfoList(cb pulsewatch.ListCallback[pulsewatch.Sink]) {
	in.c.post(func() { deliverAll(in.c.server, func(s *Server) []pulsewatch.Sink { return s.sinks.all() }, cb) })
}

func (in introspector) SinkInfoByIndex(index uint32, cb pulsewatch.ListCallback[pulsewatch.Sink]) {
	in.c.post(func() {
		deliverOne(in.c.server, func(s *Server) (pulsewatch.Sink, bool) { return s.sinks.get(index) }, cb)
	})
}

func (in introspector) SourceInfoList(cb pulsewatch.ListCallback[pulsewatch.Source]) {
	in.c.post(func() { deliverAll(in.c.server, func(s *Server) []pulsewatch.Source { return s.sources.all() }, cb) })
}

func (in introspector) SourceInfoByIndex(index uint32, cb pulsewatch.ListCallback[pulsewatch.Source]) {
	in.c.post(func() {
		deliverOne(in.c.server, func(s *Server) (pulsewatch.Source, bool) { return s.sources.get(index) }, cb)
	})
}

func (in introspector) SinkInputInfoList(cb pulsewatch.ListCallback[pulsewatch.SinkInput]) {
	in.c.post(func() {
		deliverAll(in.c.server, func(s *Server) []pulsewatch.SinkInput { return s.sinkInputs.all() }, cb)
	})
}

func (in introspector) SinkInputInfoByIndex(index uint32, cb pulsewatch.ListCallback[pulsewatch.SinkInput]) {
	in.c.post(func() {
		deliverOne(in.c.server, func(s *Server) (pulsewatch.SinkInput, bool) { return s.sinkInputs.get(index) }, cb)
	})
}

func (in introspector) SourceOutputInfoList(cb pulsewatch.ListCallback[pulsewatch.SourceOutput]) {
	in.c.post(func() {
		deliverAll(in.c.server, func(s *Server) []pulsewatch.SourceOutput { return s.sourceOutputs.all() }, cb)
	})
}

func (in introspector) SourceOutputInfoByIndex(index uint32, cb pulsewatch.ListCallback[pulsewatch.SourceOutput]) {
	in.c.post(func() {
		deliverOne(in.c.server, func(s *Server) (pulsewatch.SourceOutput, bool) { return s.sourceOutputs.get(index) }, cb)
	})
}

func deliverAll[T any](s *Server, read func(*Server) []T, cb pulsewatch.ListCallback[T]) {
	s.mu.Lock()
	rows := read(s)
	s.mu.Unlock()

	// One scratch record is reused for every item, like a decode buffer.
	var scratch T
	for _, row := range rows {
		scratch = row
		cb.OnItem(&scratch)
	}
	cb.OnEnd()
}

func deliverOne[T any](s *Server, read func(*Server) (T, bool), cb pulsewatch.ListCallback[T]) {
	s.mu.Lock()
	row, ok := read(s)
	s.mu.Unlock()

	if !ok {
		cb.OnError(pulsewatch.ErrNoEntity)
		return
	}
	cb.OnItem(&row)
	cb.OnEnd()
}

// Ensure introspector implements pulsewatch.Introspector.
var _ pulsewatch.Introspector = introspector{}
