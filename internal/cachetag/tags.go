package cachetag

import "fmt"

// Kind identifies a class of cached data. The set is closed and known
// at build time; tags are namespaced by kind so invalidations never
// bleed across kinds.
type Kind string

const (
	KindUsers                    Kind = "users"
	KindOrganizations            Kind = "organizations"
	KindJobListings              Kind = "jobListings"
	KindJobListingApplications   Kind = "jobListingApplications"
	KindUserNotifications        Kind = "userNotifications"
	KindUserResumes              Kind = "userResumes"
	KindOrganizationUserSettings Kind = "organizationUserSettings"
	KindUserNotificationSettings Kind = "userNotificationSettings"
)

// Kinds lists every known cache tag kind
var Kinds = []Kind{
	KindUsers,
	KindOrganizations,
	KindJobListings,
	KindJobListingApplications,
	KindUserNotifications,
	KindUserResumes,
	KindOrganizationUserSettings,
	KindUserNotificationSettings,
}

// ErrEmptyID is returned when an id-scoped tag is requested without an id
var ErrEmptyID = fmt.Errorf("cachetag: id must not be empty")

// GlobalTag returns the tag covering every instance of a kind
func GlobalTag(kind Kind) string {
	return "global:" + string(kind)
}

// IDTag returns the tag covering exactly one instance of a kind
func IDTag(kind Kind, id string) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	return "id:" + string(kind) + "-" + id, nil
}

// ScopedTag returns the tag covering all instances of kind that belong
// to one parent entity, e.g. all job listings of one organization
func ScopedTag(kind Kind, parentKind Kind, parentID string) (string, error) {
	if parentID == "" {
		return "", ErrEmptyID
	}
	return string(parentKind) + ":" + parentID + "-" + string(kind), nil
}
