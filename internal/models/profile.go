package models

// EntityKind 档案子记录类型，同时也是后端的路径段
type EntityKind string

const (
	KindDisease        EntityKind = "diseases"
	KindSpecialization EntityKind = "specializations"
	KindAddress        EntityKind = "addresses"
	KindContact        EntityKind = "contacts"
	KindAnnouncement   EntityKind = "announcements"
)

// DoctorKinds / PatientKinds list the sub-records each role variant owns.
var (
	DoctorKinds  = []EntityKind{KindSpecialization, KindAddress, KindContact, KindAnnouncement}
	PatientKinds = []EntityKind{KindDisease}
)

func (k EntityKind) Valid() bool {
	switch k {
	case KindDisease, KindSpecialization, KindAddress, KindContact, KindAnnouncement:
		return true
	}
	return false
}

// KindsFor 返回某个角色拥有的子记录类型
func KindsFor(role Role) []EntityKind {
	if role == RoleDoctor {
		return DoctorKinds
	}
	return PatientKinds
}

type Disease struct {
	ID            int64  `json:"id"`
	UserID        UserID `json:"userId"`
	Name          string `json:"name" validate:"required,max=128"`
	DiagnosisDate string `json:"diagnosisDate" validate:"required,datetime=2006-01-02"`
}

type Specialization struct {
	ID                int64  `json:"id"`
	UserID            UserID `json:"userId"`
	Name              string `json:"name" validate:"required,max=128"`
	YearsOfExperience int    `json:"yearsOfExperience" validate:"gte=0,lte=80"`
}

type WorkAddress struct {
	ID      int64  `json:"id"`
	UserID  UserID `json:"userId"`
	Address string `json:"address" validate:"required,max=256"`
	City    string `json:"city,omitempty" validate:"max=128"`
}

type Contact struct {
	ID     int64  `json:"id"`
	UserID UserID `json:"userId"`
	Type   string `json:"type" validate:"required,oneof=phone email telegram website other"`
	Value  string `json:"value" validate:"required,max=256"`
}

type Announcement struct {
	ID     int64  `json:"id"`
	UserID UserID `json:"userId"`
	Text   string `json:"text" validate:"required,max=2000"`
	Date   string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Profile 组合后的档案。医生和普通用户各自只填自己的那部分
type Profile struct {
	User            User             `json:"user"`
	Diseases        []Disease        `json:"diseases,omitempty"`
	Specializations []Specialization `json:"specializations,omitempty"`
	Addresses       []WorkAddress    `json:"addresses,omitempty"`
	Contacts        []Contact        `json:"contacts,omitempty"`
	Announcements   []Announcement   `json:"announcements,omitempty"`
}
