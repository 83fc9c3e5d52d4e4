package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sigcntrl/lampagent/pkg/log"
	"github.com/sigcntrl/lampagent/pkg/wire"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	CommandsByKind    map[wire.Kind]int
	Sessions          map[string]*SessionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single heartbeat session.
type SessionStats struct {
	FirstSeen    time.Time
	LastSeen     time.Time
	Events       int
	Remote       string
	Variant      string
	DatagramsIn  int
	DatagramsOut int
	Unframed     int
	Lost         uint64
	Restarts     int
	LastState    string

	prevSeq *uint64
}

// account applies the agent's sequence accounting to an inbound index.
func (s *SessionStats) account(seq uint64) {
	if s.prevSeq != nil {
		prev := *s.prevSeq
		switch {
		case seq > prev+1:
			s.Lost += seq - prev - 1
		case seq <= prev:
			s.Restarts++
		}
	}
	s.prevSeq = &seq
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := collectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func collectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		CommandsByKind:    make(map[wire.Kind]int),
		Sessions:          make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		sess, ok := stats.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if event.RemoteAddr != "" && sess.Remote == "" {
			sess.Remote = event.RemoteAddr
		}
		if event.Variant != "" && sess.Variant == "" {
			sess.Variant = event.Variant
		}

		switch {
		case event.Datagram != nil:
			if event.Direction == log.DirectionOut {
				sess.DatagramsOut++
				break
			}
			sess.DatagramsIn++
			if event.Datagram.Seq == nil {
				sess.Unframed++
			} else {
				sess.account(*event.Datagram.Seq)
			}
		case event.Command != nil:
			stats.CommandsByKind[event.Command.Kind]++
		case event.StateChange != nil:
			sess.LastState = event.StateChange.Entity.String() + " " + event.StateChange.NewState
		case event.Error != nil:
			stats.Errors++
		}
	}
	return stats, nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Lamp Agent Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerControl} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryCommand, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.CommandsByKind) > 0 {
		fmt.Fprintln(w, "Commands:")
		for k := wire.KindIgnored; k <= wire.KindHeaderOff; k++ {
			if count := stats.CommandsByKind[k]; count > 0 {
				fmt.Fprintf(w, "  %-16s %d\n", k.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(s.id), s.stats.Events, duration)
			if s.stats.Variant != "" {
				fmt.Fprintf(w, "           Variant: %s\n", s.stats.Variant)
			}
			if s.stats.Remote != "" {
				fmt.Fprintf(w, "           Remote: %s\n", s.stats.Remote)
			}
			fmt.Fprintf(w, "           Datagrams: %d in, %d out\n", s.stats.DatagramsIn, s.stats.DatagramsOut)
			if s.stats.Lost > 0 || s.stats.Restarts > 0 || s.stats.Unframed > 0 {
				fmt.Fprintf(w, "           Lost: %d  Restarts: %d  Unframed: %d\n",
					s.stats.Lost, s.stats.Restarts, s.stats.Unframed)
			}
			if s.stats.LastState != "" {
				fmt.Fprintf(w, "           Last state: %s\n", s.stats.LastState)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
