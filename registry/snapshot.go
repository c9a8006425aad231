package registry

import (
	"bytes"
	"fmt"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// ContentType is the media type of Snapshot.Text.
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

// Snapshot is an immutable copy of every metric family at one instant.
type Snapshot struct {
	families []*dto.MetricFamily
	takenAt  time.Time
}

func newSnapshot(mfs []*dto.MetricFamily) *Snapshot {
	out := make([]*dto.MetricFamily, 0, len(mfs))
	for _, mf := range mfs {
		out = append(out, proto.Clone(mf).(*dto.MetricFamily))
	}
	return &Snapshot{families: out, takenAt: time.Now()}
}

// Families returns the gathered families, sorted by name. Callers must not
// modify them.
func (s *Snapshot) Families() []*dto.MetricFamily {
	return append([]*dto.MetricFamily(nil), s.families...)
}

func (s *Snapshot) Len() int { return len(s.families) }

func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Equal reports whether both snapshots hold the same families and values.
// The capture instant is ignored.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.families) != len(o.families) {
		return false
	}
	for i := range s.families {
		if !proto.Equal(s.families[i], o.families[i]) {
			return false
		}
	}
	return true
}

// Text renders the snapshot in the Prometheus text exposition format. The
// whole rendering is built in memory; on error nothing is returned.
func (s *Snapshot) Text() ([]byte, error) {
	var buf bytes.Buffer
	for _, mf := range s.families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("registry: render %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}
