package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the records kept in the session store.
var (
	TimeMUS    = timeMUS{}
	SpeakerMUS = speakerMUS{}
	TurnMUS    = turnMUS{}
	SessionMUS = sessionMUS{}
)

// timeMUS encodes an instant as Unix seconds and nanoseconds; decoded
// values are in UTC.
type timeMUS struct{}

func (timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	n = varint.Int64.Marshal(v.Unix(), bs)
	return n + varint.Int64.Marshal(int64(v.Nanosecond()), bs[n:])
}

func (timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	sec, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	nsec, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	return time.Unix(sec, nsec).UTC(), n, nil
}

func (timeMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.Unix()) + varint.Int64.Size(int64(v.Nanosecond()))
}

func (timeMUS) Skip(bs []byte) (n int, err error) {
	n, err = varint.Int64.Skip(bs)
	if err != nil {
		return
	}
	n1, err := varint.Int64.Skip(bs[n:])
	return n + n1, err
}

// speakerMUS encodes a Speaker as a varint and rejects unknown values.
type speakerMUS struct{}

func (speakerMUS) Marshal(v Speaker, bs []byte) (n int) {
	return varint.Int64.Marshal(int64(v), bs)
}

func (speakerMUS) Unmarshal(bs []byte) (v Speaker, n int, err error) {
	raw, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = Speaker(raw)
	if err = ValidateSpeaker(v); err != nil {
		return 0, n, err
	}
	return v, n, nil
}

func (speakerMUS) Size(v Speaker) (size int) {
	return varint.Int64.Size(int64(v))
}

func (speakerMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

// turnMUS field order: Seq, Speaker, Text, Timestamp.
type turnMUS struct{}

func (turnMUS) Marshal(v Turn, bs []byte) (n int) {
	n = varint.Uint64.Marshal(v.Seq, bs)
	n += SpeakerMUS.Marshal(v.Speaker, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	return n + TimeMUS.Marshal(v.Timestamp, bs[n:])
}

func (turnMUS) Unmarshal(bs []byte) (v Turn, n int, err error) {
	v.Seq, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Speaker, n1, err = SpeakerMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (turnMUS) Size(v Turn) (size int) {
	size = varint.Uint64.Size(v.Seq)
	size += SpeakerMUS.Size(v.Speaker)
	size += ord.String.Size(v.Text)
	return size + TimeMUS.Size(v.Timestamp)
}

func (turnMUS) Skip(bs []byte) (n int, err error) {
	n, err = varint.Uint64.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = SpeakerMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = TimeMUS.Skip(bs[n:])
	n += n1
	return
}

// sessionMUS encodes the session header (ID, CreatedAt). Turns are stored
// under their own keys and are never part of the encoding.
type sessionMUS struct{}

func (sessionMUS) Marshal(v Session, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	return n + TimeMUS.Marshal(v.CreatedAt, bs[n:])
}

func (sessionMUS) Unmarshal(bs []byte) (v Session, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (sessionMUS) Size(v Session) (size int) {
	return ord.String.Size(v.ID) + TimeMUS.Size(v.CreatedAt)
}

func (sessionMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	n1, err := TimeMUS.Skip(bs[n:])
	return n + n1, err
}
