package attendance

import (
	"sort"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/student"
)

// NeverAttended is the weeks-absent value of a student without any attended or late log.
// Such students are left out of long-absence lists.
const NeverAttended = 999

// Absence tells how long a student has been away.
type Absence struct {
	StudentID    string     `json:"student_id"`
	StudentName  string     `json:"student_name"`
	MokjangID    *string    `json:"mokjang_id"`
	Phone        string     `json:"phone"`
	ParentPhone  string     `json:"parent_phone"`
	LastAttended *core.Date `json:"last_attended"`
	WeeksAbsent  int        `json:"weeks_absent"`
}

// WeeksAbsent returns the number of whole weeks between lastAttended and today,
// or NeverAttended when lastAttended is nil.
func WeeksAbsent(today core.Date, lastAttended *core.Date) int {
	if lastAttended == nil {
		return NeverAttended
	}
	days := today.DaysSince(*lastAttended)
	if days < 0 {
		return 0
	}
	return days / 7
}

// Absences computes the absence of every student from their last attended dates.
func Absences(today core.Date, students []student.Student, lastAttended map[string]core.Date) []Absence {
	absences := make([]Absence, 0, len(students))
	for _, s := range students {
		var last *core.Date
		if d, ok := lastAttended[s.ID]; ok {
			d := d
			last = &d
		}
		absences = append(absences, Absence{
			StudentID:    s.ID,
			StudentName:  s.Name,
			MokjangID:    s.MokjangID,
			Phone:        s.Phone,
			ParentPhone:  s.ParentPhone,
			LastAttended: last,
			WeeksAbsent:  WeeksAbsent(today, last),
		})
	}
	return absences
}

// LongAbsent keeps the absences of at least `weeks` weeks, longest first.
// Students who never attended are not included.
func LongAbsent(absences []Absence, weeks int) []Absence {
	long := make([]Absence, 0)
	for _, a := range absences {
		if a.WeeksAbsent == NeverAttended || a.WeeksAbsent < weeks {
			continue
		}
		long = append(long, a)
	}
	sort.SliceStable(long, func(i, j int) bool {
		if long[i].WeeksAbsent != long[j].WeeksAbsent {
			return long[i].WeeksAbsent > long[j].WeeksAbsent
		}
		return long[i].StudentName < long[j].StudentName
	})
	return long
}
