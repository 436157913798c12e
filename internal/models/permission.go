package models

// PermissionID names a device permission requested during onboarding.
type PermissionID string

const (
	PermissionCamera     PermissionID = "camera"
	PermissionLocation   PermissionID = "location"
	PermissionContacts   PermissionID = "contacts"
	PermissionMicrophone PermissionID = "microphone"
)

// PermissionCatalog is the fixed, ordered set shown on the Permissions step.
var PermissionCatalog = []PermissionID{
	PermissionCamera,
	PermissionLocation,
	PermissionContacts,
	PermissionMicrophone,
}

// PermissionStatus is Pending until the grant succeeds.
type PermissionStatus int

const (
	PermissionPending PermissionStatus = iota
	PermissionGranted
)

func (s PermissionStatus) String() string {
	if s == PermissionGranted {
		return "granted"
	}
	return "pending"
}

// PermissionRecord tracks one catalog entry.
type PermissionRecord struct {
	ID     PermissionID
	Status PermissionStatus
}
