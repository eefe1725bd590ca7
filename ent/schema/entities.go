// Package schema holds the demo ent schemas that the oql command loads
// when metadata.source is "ent".
package schema

import "entgo.io/ent"

// Entities returns every schema in the package, in registration order.
func Entities() []ent.Interface {
	return []ent.Interface{
		User{},
		Profile{},
		Post{},
		Comment{},
		Tag{},
	}
}
