package database

import (
	"time"

	"github.com/edgard/birthdaybot/internal/birthday"
)

// Member is a tracked member of one group together with their birthday.
//
// BirthdayErr is set when the stored birthday could not be parsed; such a
// record is still returned so callers can report and skip it.
type Member struct {
	GroupID     int64
	MemberID    int64
	DisplayName string
	Birthday    birthday.Date
	RawBirthday string
	BirthdayErr error
	UpdatedAt   time.Time
}

// memberRow is the members table row as stored.
type memberRow struct {
	GroupID     int64     `db:"group_id"`
	MemberID    int64     `db:"member_id"`
	DisplayName string    `db:"display_name"`
	Birthday    string    `db:"birthday"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r memberRow) toMember() Member {
	m := Member{
		GroupID:     r.GroupID,
		MemberID:    r.MemberID,
		DisplayName: r.DisplayName,
		RawBirthday: r.Birthday,
		UpdatedAt:   r.UpdatedAt,
	}
	m.Birthday, m.BirthdayErr = birthday.ParseISO(r.Birthday)
	return m
}

// scanRunRow records the last date a group's birthday actions were dispatched.
type scanRunRow struct {
	GroupID      int64     `db:"group_id"`
	LastScanDate string    `db:"last_scan_date"`
	UpdatedAt    time.Time `db:"updated_at"`
}
