package pulseaudio

import (
	"fmt"

	"github.com/jfreymuth/pulse/proto"
	"github.com/zoobzio/pulsewatch"
)

// introspector issues info requests and replays the answers on the loop.
type introspector struct {
	c *conn
}

func (in introspector) SinkInfoList(cb pulsewatch.ListCallback[pulsewatch.Sink]) {
	var reply proto.GetSinkInfoListReply
	in.c.request(&proto.GetSinkInfoList{}, &reply, func(err error) {
		deliverList(err, reply, sinkFromReply, cb)
	})
}

func (in introspector) SinkInfoByIndex(index uint32, cb pulsewatch.ListCallback[pulsewatch.Sink]) {
	var reply proto.GetSinkInfoReply
	in.c.request(&proto.GetSinkInfo{SinkIndex: index}, &reply, func(err error) {
		deliverOne(err, index, &reply, sinkFromReply, cb)
	})
}

func (in introspector) SourceInfoList(cb pulsewatch.ListCallback[pulsewatch.Source]) {
	var reply proto.GetSourceInfoListReply
	in.c.request(&proto.GetSourceInfoList{}, &reply, func(err error) {
		deliverList(err, reply, sourceFromReply, cb)
	})
}

func (in introspector) SourceInfoByIndex(index uint32, cb pulsewatch.ListCallback[pulsewatch.Source]) {
	var reply proto.GetSourceInfoReply
	in.c.request(&proto.GetSourceInfo{SourceIndex: index}, &reply, func(err error) {
		deliverOne(err, index, &reply, sourceFromReply, cb)
	})
}

func (in introspector) SinkInputInfoList(cb pulsewatch.ListCallback[pulsewatch.SinkInput]) {
	var reply proto.GetSinkInputInfoListReply
	in.c.request(&proto.GetSinkInputInfoList{}, &reply, func(err error) {
		deliverList(err, reply, sinkInputFromReply, cb)
	})
}

func (in introspector) SinkInputInfoByIndex(index uint32, cb pulsewatch.ListCallback[pulsewatch.SinkInput]) {
	var reply proto.GetSinkInputInfoReply
	in.c.request(&proto.GetSinkInputInfo{SinkInputIndex: index}, &reply, func(err error) {
		deliverOne(err, index, &reply, sinkInputFromReply, cb)
	})
}

func (in introspector) SourceOutputInfoList(cb pulsewatch.ListCallback[pulsewatch.SourceOutput]) {
	var reply proto.GetSourceOutputInfoListReply
	in.c.request(&proto.GetSourceOutputInfoList{}, &reply, func(err error) {
		deliverList(err, reply, sourceOutputFromReply, cb)
	})
}

func (in introspector) SourceOutputInfoByIndex(index uint32, cb pulsewatch.ListCallback[pulsewatch.SourceOutput]) {
	var reply proto.GetSourceOutputInfoReply
	in.c.request(&proto.GetSourceOutputInfo{SourceOutpuIndex: index}, &reply, func(err error) {
		deliverOne(err, index, &reply, sourceOutputFromReply, cb)
	})
}

func deliverList[R any, T any](err error, replies []*R, convert func(*R) T, cb pulsewatch.ListCallback[T]) {
	if err != nil {
		cb.OnError(err)
		return
	}
	for _, r := range replies {
		if r == nil {
			continue
		}
		item := convert(r)
		cb.OnItem(&item)
	}
	cb.OnEnd()
}

// deliverOne reports a failed lookup as ErrNoEntity: the index vanished
// between the notification and the query.
func deliverOne[R any, T any](err error, index uint32, reply *R, convert func(*R) T, cb pulsewatch.ListCallback[T]) {
	if err != nil {
		cb.OnError(fmt.Errorf("%w: index %d: %w", pulsewatch.ErrNoEntity, index, err))
		return
	}
	item := convert(reply)
	cb.OnItem(&item)
	cb.OnEnd()
}

var _ pulsewatch.Introspector = introspector{}
