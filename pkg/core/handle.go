package core

import (
	"encoding/json"
	"time"
)

// InvokeMethod is the method name every handle answers to, regardless of
// the wrapped function's shape.
const InvokeMethod = "invoke"

// Ignored is a marker parameter type. A wire parameter declared with this
// type is never deserialized; the function receives the zero value.
type Ignored struct{}

// HandleState represents the lifecycle state of a boundary handle.
type HandleState string

const (
	StateActive   HandleState = "active"
	StateReleased HandleState = "released"
	StateUnknown  HandleState = "unknown"
)

// ReleaseReason records which path released a handle.
type ReleaseReason string

const (
	ReleaseExplicit  ReleaseReason = "explicit"  // owner called Release
	ReleaseCollected ReleaseReason = "collected" // owner became unreachable
	ReleaseSwept     ReleaseReason = "swept"     // background sweep found an orphan
	ReleaseShutdown  ReleaseReason = "shutdown"  // table closed
)

// Metadata is what the boundary learns about a handle when it is published.
type Metadata struct {
	Handle         string `json:"handle"`
	Method         string `json:"method"`
	Shape          string `json:"shape"`
	Arity          int    `json:"arity"`
	ReturnsValue   bool   `json:"returnsValue"`
	IgnoredIndices []int  `json:"ignoredIndices"`
}

// Clone returns a copy that does not share the ignored index slice.
// The copy's IgnoredIndices is never nil.
func (m Metadata) Clone() Metadata {
	out := m
	out.IgnoredIndices = append([]int{}, m.IgnoredIndices...)
	return out
}

// HandleRecord is the persisted ledger entry for a published handle.
type HandleRecord struct {
	ID             string        `gorm:"primaryKey;size:36"`
	Shape          string        `gorm:"size:1024;not null"`
	Arity          int           `gorm:"not null"`
	ReturnsValue   bool          `gorm:"not null"`
	IgnoredIndices []byte        `gorm:"type:bytes"` // JSON array
	State          HandleState   `gorm:"index;size:20;default:'active'"`
	ReleaseReason  ReleaseReason `gorm:"size:20"`
	Calls          int64         `gorm:"default:0"`
	Failures       int64         `gorm:"default:0"`
	LastError      string        `gorm:"type:text"`
	LastCalledAt   *time.Time
	ReleasedAt     *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

// NewHandleRecord builds the ledger row for a freshly published handle.
func NewHandleRecord(meta Metadata) (*HandleRecord, error) {
	ignored := meta.IgnoredIndices
	if ignored == nil {
		ignored = []int{}
	}
	raw, err := json.Marshal(ignored)
	if err != nil {
		return nil, err
	}
	return &HandleRecord{
		ID:             meta.Handle,
		Shape:          meta.Shape,
		Arity:          meta.Arity,
		ReturnsValue:   meta.ReturnsValue,
		IgnoredIndices: raw,
		State:          StateActive,
	}, nil
}

// Ignored decodes the ignored index column.
func (r *HandleRecord) Ignored() ([]int, error) {
	out := []int{}
	if len(r.IgnoredIndices) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(r.IgnoredIndices, &out); err != nil {
		return nil, err
	}
	return out, nil
}
