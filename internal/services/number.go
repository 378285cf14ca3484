package services

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// OrderNumberPrefix starts every generated order number.
const OrderNumberPrefix = "PV-"

// NumberGenerator issues order numbers that are time ordered and unique per
// node, so two orders created in the same second never collide.
type NumberGenerator struct {
	node *snowflake.Node
}

// NewNumberGenerator creates a generator for the given snowflake node (0-1023).
func NewNumberGenerator(nodeID int64) (*NumberGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &NumberGenerator{node: node}, nil
}

// Next returns a new order number such as "PV-3JZ9X0K2WQ8G".
func (g *NumberGenerator) Next() string {
	return OrderNumberPrefix + strings.ToUpper(g.node.Generate().Base36())
}
