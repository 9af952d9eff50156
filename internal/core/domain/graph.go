package domain

type GraphNode struct {
	ID     int64      `json:"id"`
	Label  string     `json:"label"`
	Status TaskStatus `json:"status,omitempty"`
}

type GraphEdge struct {
	From   int64  `json:"from"`
	To     int64  `json:"to"`
	Status string `json:"status,omitempty"`
}

// Graph is the dag visualization payload.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// CodeNode is a file or folder of a dag's code tree.
type CodeNode struct {
	Name     string     `json:"name"`
	Content  string     `json:"content,omitempty"`
	Children []CodeNode `json:"children,omitempty"`
}

// StepNode is a task step with its nested sub-steps.
type StepNode struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Level    int        `json:"level"`
	Status   TaskStatus `json:"status"`
	Duration string     `json:"duration,omitempty"`
	Children []StepNode `json:"children,omitempty"`
}

// FlatNode is a flattened tree node as consumed by tree widgets.
type FlatNode struct {
	Expandable bool   `json:"expandable"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Content    string `json:"content,omitempty"`
}

// Flatten walks a code tree depth-first and returns its flat nodes.
func (n CodeNode) Flatten() []FlatNode {
	var out []FlatNode
	var walk func(node CodeNode, level int)
	walk = func(node CodeNode, level int) {
		out = append(out, FlatNode{
			Expandable: len(node.Children) > 0,
			Name:       node.Name,
			Level:      level,
			Content:    node.Content,
		})
		for _, child := range node.Children {
			walk(child, level+1)
		}
	}
	walk(n, 0)
	return out
}
