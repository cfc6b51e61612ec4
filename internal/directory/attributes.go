package directory

import (
	"fmt"
	"os"
	"strconv"
)

// attributeDrift lists the owner, group and mode corrections a directory
// needs. uid and gid are -1 when that id is left alone.
type attributeDrift struct {
	uid       int
	gid       int
	mode      *os.FileMode
	ownership []string
	modeNote  string
}

func (d attributeDrift) empty() bool {
	return d.uid < 0 && d.gid < 0 && d.mode == nil
}

func (d attributeDrift) changes() []string {
	out := append([]string(nil), d.ownership...)
	if d.modeNote != "" {
		out = append(out, d.modeNote)
	}
	return out
}

// compareAttributes works out which managed attributes of observed differ
// from desired. Attributes desired leaves unset are never reported.
func (e *Engine) compareAttributes(observed ObservedState, desired DesiredState) (attributeDrift, error) {
	drift := attributeDrift{uid: -1, gid: -1}

	if desired.Owner != "" {
		uid, err := e.resolveOwner(desired.Path, desired.Owner)
		if err != nil {
			return drift, err
		}
		if !observed.OwnershipKnown || observed.UID != uid {
			drift.uid = uid
			drift.ownership = append(drift.ownership, fmt.Sprintf("change owner of %s from %s to %s",
				desired.Path, formatID(observed.UID, observed.OwnershipKnown), describeID(desired.Owner, uid)))
		}
	}

	if desired.Group != "" {
		gid, err := e.resolveGroup(desired.Path, desired.Group)
		if err != nil {
			return drift, err
		}
		if !observed.OwnershipKnown || observed.GID != gid {
			drift.gid = gid
			drift.ownership = append(drift.ownership, fmt.Sprintf("change group of %s from %s to %s",
				desired.Path, formatID(observed.GID, observed.OwnershipKnown), describeID(desired.Group, gid)))
		}
	}

	if desired.Mode != nil && observed.Mode != *desired.Mode {
		mode := *desired.Mode
		drift.mode = &mode
		drift.modeNote = fmt.Sprintf("change mode of %s from %s to %s", desired.Path, FormatMode(observed.Mode), FormatMode(mode))
	}

	return drift, nil
}

// ReconcileAttributes corrects the owner, group and mode of an existing
// directory wherever desired sets them and they differ. It reports whether
// anything was changed.
func (e *Engine) ReconcileAttributes(desired DesiredState) (bool, error) {
	desired, err := desired.normalize()
	if err != nil {
		return false, err
	}

	var res Result
	err = e.reconcile(desired, &res)
	return res.Changed, err
}

func (e *Engine) reconcile(desired DesiredState, res *Result) error {
	if desired.Owner == "" && desired.Group == "" && desired.Mode == nil {
		return nil
	}

	observed, err := e.prober.Probe(desired.Path)
	if err != nil {
		return err
	}
	if !observed.Exists {
		return newPathError("stat", desired.Path, ErrProbeFailure, os.ErrNotExist)
	}

	drift, err := e.compareAttributes(observed, desired)
	if err != nil {
		return err
	}
	if drift.empty() {
		return nil
	}

	// chown first: on Linux it clears setuid/setgid, which chmod restores.
	if drift.uid >= 0 || drift.gid >= 0 {
		if err := e.fs.Chown(desired.Path, drift.uid, drift.gid); err != nil {
			return newPathError("chown", desired.Path, ErrMutationFailure, err)
		}
		for _, change := range drift.ownership {
			res.record("%s", change)
		}
	}

	if drift.mode != nil {
		if err := e.fs.Chmod(desired.Path, *drift.mode); err != nil {
			return newPathError("chmod", desired.Path, ErrMutationFailure, err)
		}
		res.record("%s", drift.modeNote)
	}

	return nil
}

func formatID(id int, known bool) string {
	if !known {
		return "unknown"
	}
	return strconv.Itoa(id)
}

func describeID(declared string, id int) string {
	numeric := strconv.Itoa(id)
	if declared == numeric {
		return numeric
	}
	return fmt.Sprintf("%s (%s)", declared, numeric)
}
