package produce

import "fmt"

// Category buckets a produce class for display.
type Category int

const (
	Fruit Category = iota + 1
	Vegetable
)

func (c Category) String() string {
	switch c {
	case Fruit:
		return "fruit"
	case Vegetable:
		return "vegetable"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Heading is the category line shown to users.
func (c Category) Heading() string {
	switch c {
	case Fruit:
		return "Fruit"
	case Vegetable:
		return "Vegetables"
	default:
		return ""
	}
}

func (c Category) MarshalText() ([]byte, error) {
	switch c {
	case Fruit, Vegetable:
		return []byte(c.String()), nil
	default:
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
}

func (c *Category) UnmarshalText(b []byte) error {
	switch string(b) {
	case "fruit":
		*c = Fruit
	case "vegetable":
		*c = Vegetable
	default:
		return fmt.Errorf("unknown category %q", b)
	}
	return nil
}
