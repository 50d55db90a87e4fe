package params

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

var configKeys = map[string]bool{
	"value":   true,
	"type":    true,
	"array":   true,
	"squash":  true,
	"replace": true,
}

// UnmarshalYAML accepts either a full declaration or a bare default value:
//
//	page: 1             # shorthand for {value: 1}
//	sort: {value: asc, squash: true}
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i < len(node.Content); i += 2 {
			if configKeys[node.Content[i].Value] {
				type plain Config
				var p plain
				if err := node.Decode(&p); err != nil {
					return err
				}
				*c = Config(p)
				return nil
			}
		}
	}

	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	*c = Config{Value: v}
	return nil
}

// UnmarshalYAML accepts true, false or "auto".
func (m *ArrayMode) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*m = ArrayUnset
	case bool:
		if x {
			*m = ArrayOn
		} else {
			*m = ArrayOff
		}
	case string:
		switch x {
		case "auto":
			*m = ArrayAuto
		case "true":
			*m = ArrayOn
		case "false":
			*m = ArrayOff
		default:
			return fmt.Errorf("%w: %q", ErrInvalidArrayMode, x)
		}
	default:
		return fmt.Errorf("%w: %v", ErrInvalidArrayMode, v)
	}
	return nil
}
