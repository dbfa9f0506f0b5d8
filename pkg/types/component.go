package types

// ComponentID identifies one footprint kind.
type ComponentID string

// The four footprint components, in install order. Rollback walks the
// same list in reverse so background loops stop before the artifacts
// they write to are restored.
const (
	ComponentTag         ComponentID = "tag"
	ComponentService     ComponentID = "service"
	ComponentLogInject   ComponentID = "loginject"
	ComponentReportForge ComponentID = "reportforge"
)

// InstallOrder returns the canonical install ordering.
func InstallOrder() []ComponentID {
	return []ComponentID{
		ComponentTag,
		ComponentService,
		ComponentLogInject,
		ComponentReportForge,
	}
}

// RollbackOrder returns InstallOrder reversed.
func RollbackOrder() []ComponentID {
	order := InstallOrder()
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// IsValidComponent reports whether id names one of the four components.
func IsValidComponent(id ComponentID) bool {
	switch id {
	case ComponentTag, ComponentService, ComponentLogInject, ComponentReportForge:
		return true
	}
	return false
}

// VerifyState is the result of verifying a component against the host.
type VerifyState string

const (
	// NotInstalled means no registry record exists for the component.
	NotInstalled VerifyState = "not_installed"
	// InstalledAndHealthy means the record exists and the host state matches it.
	InstalledAndHealthy VerifyState = "installed"
	// InstalledButDrifted means the record exists but the host state no
	// longer matches; the next Apply repairs it.
	InstalledButDrifted VerifyState = "drifted"
)
