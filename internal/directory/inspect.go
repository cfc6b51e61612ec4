package directory

import (
	"fmt"
	"strconv"
	"strings"
)

// Status classifies how an observed directory relates to its declaration.
type Status string

const (
	// StatusSatisfied: nothing to do.
	StatusSatisfied Status = "satisfied"
	// StatusMissing: the directory has to be created.
	StatusMissing Status = "missing"
	// StatusDrifted: the directory exists but its attributes, or its
	// presence for a delete, do not match.
	StatusDrifted Status = "drifted"
	// StatusBlocked: converging would fail a precondition.
	StatusBlocked Status = "blocked"
)

// Assessment is the read-only verdict produced by Inspect.
type Assessment struct {
	Status   Status
	Message  string
	Pending  []string
	Observed ObservedState
	// Err holds the precondition failure when Status is StatusBlocked.
	Err error
	// Creates lists the directories Converge would create, root first.
	Creates []string

	DesiredLines  []string
	ObservedLines []string
}

// RequiresAction reports whether Converge would change the filesystem.
func (a Assessment) RequiresAction() bool {
	return a.Status == StatusMissing || a.Status == StatusDrifted
}

// Inspect runs every check Converge would run for action without mutating
// anything. Precondition failures come back as StatusBlocked with Err set;
// probe failures are returned as errors.
func (e *Engine) Inspect(desired DesiredState, action Action) (Assessment, error) {
	return e.InspectPlanned(desired, action, nil)
}

// InspectPlanned is Inspect for a step that runs after others in the same
// run: missing ancestors that planned reports count as directories that
// will exist, so a child of a directory created earlier is not blocked.
func (e *Engine) InspectPlanned(desired DesiredState, action Action, planned Planned) (Assessment, error) {
	desired, err := desired.normalize()
	if err != nil {
		return Assessment{}, err
	}

	switch action {
	case ActionCreate:
		return e.inspectPresent(desired, planned)
	case ActionDelete:
		return e.inspectAbsent(desired)
	default:
		return Assessment{}, fmt.Errorf("unknown directory action %q", action)
	}
}

func (e *Engine) inspectPresent(desired DesiredState, planned Planned) (Assessment, error) {
	current, err := e.prober.Probe(desired.Path)
	if err != nil {
		return Assessment{}, err
	}

	a := Assessment{
		Observed:      current,
		DesiredLines:  e.desiredLines(desired),
		ObservedLines: observedLines(current, desired),
	}

	if current.Exists && !current.IsDirectory {
		return blocked(a, newPathError("create", desired.Path, ErrEnclosingPathIsFile, nil)), nil
	}

	if !current.Exists {
		plan, err := e.checkEnclosing(desired, planned)
		if err != nil {
			if IsPrecondition(err) {
				return blocked(a, err), nil
			}
			return Assessment{}, err
		}

		if desired.Recursive {
			a.Creates = append(a.Creates, plan.missing...)
		}
		a.Creates = append(a.Creates, desired.Path)
		for _, dir := range a.Creates {
			a.Pending = append(a.Pending, "create directory "+dir)
		}

		intents, err := e.attributeIntents(desired)
		if err != nil {
			if IsPrecondition(err) {
				return blocked(a, err), nil
			}
			return Assessment{}, err
		}
		a.Pending = append(a.Pending, intents...)
		a.Status = StatusMissing
		a.Message = fmt.Sprintf("directory %s does not exist", desired.Path)
		return a, nil
	}

	drift, err := e.compareAttributes(current, desired)
	if err != nil {
		if IsPrecondition(err) {
			return blocked(a, err), nil
		}
		return Assessment{}, err
	}
	if drift.empty() {
		a.Status = StatusSatisfied
		a.Message = fmt.Sprintf("directory %s matches the declaration", desired.Path)
		return a, nil
	}

	a.Status = StatusDrifted
	a.Pending = drift.changes()
	a.Message = fmt.Sprintf("directory %s has drifted: %s", desired.Path, strings.Join(driftFields(drift), ", "))
	return a, nil
}

func (e *Engine) inspectAbsent(desired DesiredState) (Assessment, error) {
	current, err := e.prober.Probe(desired.Path)
	if err != nil {
		return Assessment{}, err
	}

	a := Assessment{
		Observed:      current,
		DesiredLines:  []string{"absent " + desired.Path},
		ObservedLines: observedLines(current, DesiredState{Path: desired.Path}),
	}
	if !current.Exists {
		a.ObservedLines = a.DesiredLines
		a.Status = StatusSatisfied
		a.Message = fmt.Sprintf("directory %s is absent", desired.Path)
		return a, nil
	}

	if !current.IsDirectory {
		return blocked(a, newPathError("delete", desired.Path, ErrTargetIsNotADirectory, nil)), nil
	}
	if err := e.checkRemovable(desired.Path); err != nil {
		if IsPrecondition(err) {
			return blocked(a, err), nil
		}
		return Assessment{}, err
	}

	a.Status = StatusDrifted
	a.Pending = []string{"delete directory " + desired.Path}
	a.Message = fmt.Sprintf("directory %s exists and is declared absent", desired.Path)
	return a, nil
}

// attributeIntents describes the attribute changes a freshly created
// directory would receive. The resulting mode depends on the umask, so a
// managed mode is always listed.
func (e *Engine) attributeIntents(desired DesiredState) ([]string, error) {
	var intents []string
	if desired.Owner != "" {
		uid, err := e.resolveOwner(desired.Path, desired.Owner)
		if err != nil {
			return nil, err
		}
		intents = append(intents, fmt.Sprintf("set owner of %s to %s", desired.Path, describeID(desired.Owner, uid)))
	}
	if desired.Group != "" {
		gid, err := e.resolveGroup(desired.Path, desired.Group)
		if err != nil {
			return nil, err
		}
		intents = append(intents, fmt.Sprintf("set group of %s to %s", desired.Path, describeID(desired.Group, gid)))
	}
	if desired.Mode != nil {
		intents = append(intents, fmt.Sprintf("set mode of %s to %s", desired.Path, FormatMode(*desired.Mode)))
	}
	return intents, nil
}

func (e *Engine) desiredLines(desired DesiredState) []string {
	lines := []string{"directory " + desired.Path}
	if desired.Owner != "" {
		value := desired.Owner
		if uid, err := resolveID(desired.Owner, e.identities.LookupUser); err == nil {
			value = strconv.Itoa(uid)
		}
		lines = append(lines, "owner "+value)
	}
	if desired.Group != "" {
		value := desired.Group
		if gid, err := resolveID(desired.Group, e.identities.LookupGroup); err == nil {
			value = strconv.Itoa(gid)
		}
		lines = append(lines, "group "+value)
	}
	if desired.Mode != nil {
		lines = append(lines, "mode "+FormatMode(*desired.Mode))
	}
	return lines
}

// observedLines lists only the attributes desired manages so a diff against
// desiredLines shows nothing but real differences.
func observedLines(current ObservedState, desired DesiredState) []string {
	switch {
	case !current.Exists:
		return nil
	case !current.IsDirectory:
		return []string{"non-directory " + current.Path}
	}

	lines := []string{"directory " + current.Path}
	if desired.Owner != "" {
		lines = append(lines, "owner "+formatID(current.UID, current.OwnershipKnown))
	}
	if desired.Group != "" {
		lines = append(lines, "group "+formatID(current.GID, current.OwnershipKnown))
	}
	if desired.Mode != nil {
		lines = append(lines, "mode "+FormatMode(current.Mode))
	}
	return lines
}

func driftFields(drift attributeDrift) []string {
	var fields []string
	if drift.uid >= 0 {
		fields = append(fields, "owner")
	}
	if drift.gid >= 0 {
		fields = append(fields, "group")
	}
	if drift.mode != nil {
		fields = append(fields, "mode")
	}
	return fields
}

func blocked(a Assessment, err error) Assessment {
	a.Status = StatusBlocked
	a.Err = err
	a.Message = err.Error()
	a.Pending = nil
	a.Creates = nil
	return a
}
