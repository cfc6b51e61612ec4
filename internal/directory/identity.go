package directory

import (
	"fmt"
	"os/user"
	"strconv"
)

// IdentityResolver maps symbolic user and group names to numeric ids.
type IdentityResolver interface {
	LookupUser(name string) (int, error)
	LookupGroup(name string) (int, error)
}

// SystemIdentities resolves names through the host user database.
type SystemIdentities struct{}

// LookupUser returns the uid for name.
func (SystemIdentities) LookupUser(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u.Uid)
}

// LookupGroup returns the gid for name.
func (SystemIdentities) LookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}

// resolveID accepts either a non-negative number or a name to look up.
func resolveID(value string, lookup func(string) (int, error)) (int, error) {
	if id, err := strconv.Atoi(value); err == nil {
		if id < 0 {
			return 0, fmt.Errorf("id %d is negative", id)
		}
		return id, nil
	}
	return lookup(value)
}

func (e *Engine) resolveOwner(path, owner string) (int, error) {
	uid, err := resolveID(owner, e.identities.LookupUser)
	if err != nil {
		return 0, newPathError("lookup owner", path, ErrUnknownIdentity, fmt.Errorf("%q: %w", owner, err))
	}
	return uid, nil
}

func (e *Engine) resolveGroup(path, group string) (int, error) {
	gid, err := resolveID(group, e.identities.LookupGroup)
	if err != nil {
		return 0, newPathError("lookup group", path, ErrUnknownIdentity, fmt.Errorf("%q: %w", group, err))
	}
	return gid, nil
}
