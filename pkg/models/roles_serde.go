package models

import "encoding/json"

func marshalRoleMap(m map[ModelRole]RoleSelection) ([]byte, error) {
	out := make(map[string]RoleSelection, len(m))
	for role, sel := range m {
		out[string(role)] = sel
	}
	return json.Marshal(out)
}

func unmarshalRoleMap(data []byte) (map[ModelRole]RoleSelection, error) {
	var raw map[string]RoleSelection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	m := make(map[ModelRole]RoleSelection, len(raw))
	for k, sel := range raw {
		role, ok := ParseModelRole(k)
		if !ok {
			// Unknown roles in persisted sessions are dropped, not fatal.
			continue
		}
		m[role] = sel
	}
	return m, nil
}
