package canvas

import "context"

const opGraph = "canvas.graph"

// GraphNode is a task or note projected for visualization.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"type"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// GraphEdge is a task or note link projected for visualization. TargetKind
// is set only for task links, naming the kind of the polymorphic target.
type GraphEdge struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Type       string `json:"type"`
	TargetKind string `json:"target_type,omitempty"`
}

// Graph is the full node/edge projection of the canvas.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// AssembleGraph projects every task, note and link into a generic graph.
// Pure read side, recomputed fully on every call.
func (s *Service) AssembleGraph(ctx context.Context) (Graph, error) {
	var tasks []Task
	if err := s.db.WithContext(ctx).Find(&tasks).Error; err != nil {
		s.logError(opGraph, err)
		return Graph{}, newServiceError(opGraph, "list_tasks_failed", err)
	}
	var notes []Note
	if err := s.db.WithContext(ctx).Find(&notes).Error; err != nil {
		s.logError(opGraph, err)
		return Graph{}, newServiceError(opGraph, "list_notes_failed", err)
	}
	taskLinks, err := s.ListTaskLinks(ctx)
	if err != nil {
		return Graph{}, err
	}
	noteLinks, err := s.ListNoteLinks(ctx)
	if err != nil {
		return Graph{}, err
	}

	graph := Graph{
		Nodes: make([]GraphNode, 0, len(tasks)+len(notes)),
		Edges: make([]GraphEdge, 0, len(taskLinks)+len(noteLinks)),
	}
	for _, task := range tasks {
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:    task.ID,
			Label: task.Title,
			Kind:  TargetTypeTask,
			X:     task.X,
			Y:     task.Y,
		})
	}
	for _, note := range notes {
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:    note.ID,
			Label: note.Title,
			Kind:  TargetTypeNote,
			X:     note.X,
			Y:     note.Y,
		})
	}
	for _, link := range taskLinks {
		graph.Edges = append(graph.Edges, GraphEdge{
			Source:     link.SourceID,
			Target:     link.TargetID,
			Type:       link.LinkType,
			TargetKind: link.TargetType,
		})
	}
	for _, link := range noteLinks {
		graph.Edges = append(graph.Edges, GraphEdge{
			Source: link.SourceID,
			Target: link.TargetID,
			Type:   link.LinkType,
		})
	}
	return graph, nil
}
