package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// SessionRecord is one completed backtest session.
type SessionRecord struct {
	EndDate     time.Time          `json:"end_date"`
	CompletedAt time.Time          `json:"completed_at"`
	Stats       types.SessionStats `json:"stats"`
}

// Record is the persisted progress of one (symbol, strategy) pair.
// LastEndDate always equals the EndDate of the last session.
type Record struct {
	Symbol            string          `json:"symbol"`
	Strategy          string          `json:"strategy"`
	LastEndDate       *time.Time      `json:"last_end_date,omitempty"`
	CompletedSessions []SessionRecord `json:"completed_sessions"`
}

func newRecord(symbol string, strategy string) Record {
	return Record{
		Symbol:            symbol,
		Strategy:          strategy,
		LastEndDate:       nil,
		CompletedSessions: []SessionRecord{},
	}
}

// LastEnd returns the last completed end date, None when nothing ran yet.
func (r Record) LastEnd() optional.Option[time.Time] {
	if r.LastEndDate == nil {
		return optional.None[time.Time]()
	}

	return optional.Some(*r.LastEndDate)
}

// append adds a session and moves the cursor. The slice is copied so records
// handed out earlier are never mutated.
func (r Record) append(session SessionRecord) Record {
	sessions := make([]SessionRecord, 0, len(r.CompletedSessions)+1)
	sessions = append(sessions, r.CompletedSessions...)
	sessions = append(sessions, session)

	end := session.EndDate
	r.LastEndDate = &end
	r.CompletedSessions = sessions

	return r
}

// key is the storage name of a pair, safe for file names and redis keys.
// The symbol also escapes '_', so the first bare '_' always ends the symbol
// and distinct pairs never share a key.
func key(symbol string, strategy string) string {
	return escape(symbol, "_") + "_" + escape(strategy, "")
}

// escape percent-encodes path separators, ':', ' ', '%' and any of extra.
func escape(s string, extra string) string {
	var b strings.Builder

	for _, r := range s {
		if strings.ContainsRune(`/\: %`, r) || strings.ContainsRune(extra, r) {
			fmt.Fprintf(&b, "%%%02X", r)

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}
