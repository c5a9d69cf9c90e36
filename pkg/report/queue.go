package report

import (
	"regexp"
	"strings"

	"github.com/Microsoft/hvctl/pkg/psparse"
)

var queueHeader = regexp.MustCompile(`QOS QUEUE:[ \t]*(\S+)`)

// QueueIDs returns the id of every `QOS QUEUE: <id>` line in text, in order
// of appearance. Duplicates are kept.
func QueueIDs(text string) []string {
	var ids []string
	for _, m := range queueHeader.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// Queue is one scheduler queue section of a vfpctrl queue report.
type Queue struct {
	ID           string
	FriendlyName string
	// Fields holds the `label: value` lines of the section keyed by
	// normalized label. Only the first occurrence of a label is kept, so the
	// queue configuration wins over the statistics that follow it.
	Fields map[string]string
}

// TransmitLimit returns the configured transmit limit of the queue.
func (q Queue) TransmitLimit() string {
	return q.Fields["transmit limit"]
}

// Queues splits a vfpctrl queue report (`/list-queue`, `/get-queue-info`)
// into its queue sections.
func Queues(text string) []Queue {
	var (
		queues []Queue
		cur    *Queue
	)
	flush := func() {
		if cur != nil {
			queues = append(queues, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if m := queueHeader.FindStringSubmatch(line); m != nil {
			flush()
			cur = &Queue{ID: m[1], Fields: make(map[string]string)}
			continue
		}
		if cur == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Command ") || strings.HasPrefix(trimmed, "Port:") {
			flush()
			continue
		}
		k, v, ok := psparse.SplitField(line)
		if !ok {
			continue
		}
		k = psparse.NormalizeKey(k)
		if _, seen := cur.Fields[k]; seen {
			continue
		}
		cur.Fields[k] = v
		if k == "friendly name" {
			cur.FriendlyName = v
		}
	}
	flush()
	return queues
}

// FindQueue returns the queue in text with the given id and friendly name.
func FindQueue(text, id, name string) (Queue, error) {
	for _, q := range Queues(text) {
		if q.ID == id && q.FriendlyName == name {
			return q, nil
		}
	}
	return Queue{}, notFound("scheduler queue", "", "id: "+id, "name: "+name)
}
