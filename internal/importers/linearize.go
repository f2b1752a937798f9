package importers

import (
	"sort"

	"github.com/lodeapp/lode/internal/entities"
)

// DisplayPath reconstructs the linear display path from stored messages.
//
// Flat conversations (no parent links) are simply ordered by source
// timestamp. Graph conversations are walked as an arena keyed by
// message id: from the root, always follow the most recently created
// child (ties by message id), then return root-to-leaf order. Exports
// store no current-leaf marker once imported, so the recency rule is
// the single linearization applied after the fact.
func DisplayPath(messages []entities.Message) []entities.Message {
	if len(messages) == 0 {
		return nil
	}

	hasParents := false
	for i := range messages {
		if messages[i].ParentID != nil {
			hasParents = true
			break
		}
	}

	if !hasParents {
		ordered := make([]entities.Message, len(messages))
		copy(ordered, messages)
		sort.SliceStable(ordered, func(a, b int) bool {
			return ordered[a].CreateTime < ordered[b].CreateTime
		})
		return ordered
	}

	byID := make(map[string]*entities.Message, len(messages))
	children := make(map[string][]string, len(messages))
	for i := range messages {
		byID[messages[i].MessageID] = &messages[i]
	}
	roots := make([]string, 0, 1)
	for i := range messages {
		msg := &messages[i]
		if msg.ParentID != nil {
			if _, ok := byID[*msg.ParentID]; ok {
				children[*msg.ParentID] = append(children[*msg.ParentID], msg.MessageID)
				continue
			}
		}
		roots = append(roots, msg.MessageID)
	}
	if len(roots) == 0 {
		return nil
	}
	sort.Strings(roots)

	path := make([]entities.Message, 0, len(messages))
	visited := make(map[string]bool, len(messages))
	current := roots[0]
	for current != "" && !visited[current] {
		visited[current] = true
		path = append(path, *byID[current])

		next := ""
		var nextTime float64 = -1
		for _, childID := range children[current] {
			child := byID[childID]
			if visited[childID] {
				continue
			}
			if child.CreateTime > nextTime || (child.CreateTime == nextTime && childID > next) {
				next = childID
				nextTime = child.CreateTime
			}
		}
		current = next
	}
	return path
}
