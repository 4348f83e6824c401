package mockapi

import (
	"fmt"
	"strings"

	"github.com/kumss/console/internal/kumss"
)

var userTypeDisplay = map[string]string{
	"admin":   "Administrator",
	"teacher": "Teacher",
	"student": "Student",
	"staff":   "Staff",
}

// Collections returns the collections the console uses.
func Collections() []Collection {
	return []Collection{
		{
			Path:    kumss.PathColleges,
			Search:  []string{"name", "code"},
			Filters: []string{"is_active"},
			Rules:   map[string]string{"name": "required,max=200", "code": "required,max=20"},
			Unique:  []string{"code"},
			Defaults: map[string]any{
				"is_active": true,
			},
		},
		{
			Path:    kumss.PathUsers,
			Search:  []string{"username", "email", "first_name", "last_name"},
			Filters: []string{"user_type", "is_active", "college"},
			Rules: map[string]string{
				"username":  "required,max=150",
				"email":     "required,email",
				"user_type": "required,oneof=admin teacher student staff",
			},
			Unique:   []string{"username", "email"},
			Defaults: map[string]any{"is_active": true, "last_login": nil},
			Derive:   deriveUser,
		},
		{
			Path:     kumss.PathEvents,
			Search:   []string{"title", "venue", "description"},
			Filters:  []string{"is_active", "venue", "college"},
			Rules:    map[string]string{"title": "required,max=200", "event_date": "required,datetime=2006-01-02"},
			Defaults: map[string]any{"is_active": true},
			Derive:   nameFrom("organizer", kumss.PathUsers, "full_name"),
		},
		{
			Path:    kumss.PathNotices,
			Search:  []string{"title", "content"},
			Filters: []string{"priority", "is_active", "college"},
			Rules: map[string]string{
				"title":        "required,max=200",
				"content":      "required",
				"priority":     "required,oneof=low medium high urgent",
				"publish_date": "required,datetime=2006-01-02",
			},
			Defaults: map[string]any{"is_active": true, "priority": "medium"},
			Derive:   nameFrom("event", kumss.PathEvents, "title"),
		},
		{
			Path:    kumss.PathBulkMessages,
			Search:  []string{"title", "message"},
			Filters: []string{"message_type", "status", "is_active", "college"},
			Rules: map[string]string{
				"title":        "required,max=200",
				"message_type": "required,oneof=sms email notification",
				"message":      "required",
			},
			Defaults: map[string]any{"is_active": true, "status": "draft", "total_recipients": float64(0)},
			Derive:   nameFrom("template", kumss.PathMessageTemplates, "name"),
		},
		{
			Path:    kumss.PathMessageTemplates,
			Search:  []string{"name", "code", "content"},
			Filters: []string{"message_type", "category", "is_active"},
			Rules: map[string]string{
				"name":         "required,max=100",
				"code":         "required,max=50",
				"message_type": "required,oneof=sms email notification",
				"content":      "required",
			},
			Unique:   []string{"code"},
			Defaults: map[string]any{"is_active": true, "category": "general_notice"},
		},
		{
			Path:     kumss.PathChats,
			Search:   []string{"message", "sender_name", "receiver_name"},
			Filters:  []string{"is_read", "sender", "receiver"},
			Rules:    map[string]string{"receiver": "required", "message": "required,max=2000"},
			Defaults: map[string]any{"is_read": false},
			Derive: func(s *Store, rec map[string]any) {
				nameFrom("sender", kumss.PathUsers, "full_name")(s, rec)
				nameFrom("receiver", kumss.PathUsers, "full_name")(s, rec)
			},
		},
		{
			Path:    kumss.PathExams,
			Search:  []string{"name", "code"},
			Filters: []string{"exam_type", "is_published", "college"},
			Rules: map[string]string{
				"name":       "required,max=200",
				"code":       "required,max=20",
				"exam_type":  "required,oneof=internal midterm final",
				"start_date": "required,datetime=2006-01-02",
				"end_date":   "required,datetime=2006-01-02",
				"max_marks":  "required,gt=0",
			},
			Unique:   []string{"code"},
			Defaults: map[string]any{"is_published": false},
		},
		{
			Path:     kumss.PathFeeStructures,
			Search:   []string{"name", "description"},
			Filters:  []string{"is_active", "college"},
			Rules:    map[string]string{"name": "required,max=200", "amount": "required,gte=0"},
			Defaults: map[string]any{"is_active": true},
		},
		{
			Path:     kumss.PathStoreItems,
			Search:   []string{"name", "code"},
			Filters:  []string{"is_active", "college"},
			Rules:    map[string]string{"name": "required,max=200", "code": "required,max=50", "quantity": "required,gte=0"},
			Unique:   []string{"code"},
			Defaults: map[string]any{"is_active": true},
		},
	}
}

func deriveUser(_ *Store, rec map[string]any) {
	first, _ := rec["first_name"].(string)
	last, _ := rec["last_name"].(string)
	if full := strings.TrimSpace(first + " " + last); full != "" {
		rec["full_name"] = full
	} else {
		rec["full_name"] = nil
	}
	t, _ := rec["user_type"].(string)
	rec["user_type_display"] = userTypeDisplay[t]
}

// nameFrom sets "<field>_name" from the referenced row's attr.
func nameFrom(field, path, attr string) func(*Store, map[string]any) {
	return func(s *Store, rec map[string]any) {
		ref := s.lookup(path, rec[field])
		if ref == nil {
			rec[field+"_name"] = nil
			return
		}
		rec[field+"_name"] = ref[attr]
	}
}

// Seed fills the store with a small college. Dates are relative to now.
func Seed(s *Store) error {
	now := s.now()
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format("2006-01-02") }

	type row = map[string]any
	batches := []struct {
		path string
		rows []row
	}{
		{kumss.PathColleges, []row{
			{"name": "Kisumu University of Medical and Social Sciences", "code": "KUMSS"},
			{"name": "Lakeside Teachers College", "code": "LTC"},
		}},
		{kumss.PathUsers, []row{
			{"username": "admin", "email": "admin@kumss.ac.ke", "first_name": "Amina", "last_name": "Odhiambo", "user_type": "admin", "college": 1},
			{"username": "gachieng", "email": "grace.achieng@kumss.ac.ke", "first_name": "Grace", "last_name": "Achieng", "user_type": "teacher", "college": 1},
			{"username": "pmwangi", "email": "peter.mwangi@kumss.ac.ke", "first_name": "Peter", "last_name": "Mwangi", "user_type": "teacher", "college": 1},
			{"username": "lwekesa", "email": "lucy.wekesa@kumss.ac.ke", "first_name": "Lucy", "last_name": "Wekesa", "user_type": "teacher", "college": 1, "is_active": false},
			{"username": "bkamau", "email": "brian.kamau@students.kumss.ac.ke", "first_name": "Brian", "last_name": "Kamau", "user_type": "student", "college": 1},
			{"username": "fnjeri", "email": "faith.njeri@students.kumss.ac.ke", "first_name": "Faith", "last_name": "Njeri", "user_type": "student", "college": 1},
			{"username": "kotieno", "email": "kevin.otieno@students.kumss.ac.ke", "first_name": "Kevin", "last_name": "Otieno", "user_type": "student", "college": 1},
			{"username": "store", "email": "store@kumss.ac.ke", "user_type": "staff", "college": 1},
		}},
		{kumss.PathEvents, []row{
			{"title": "Orientation week", "event_date": day(-20), "venue": "Main hall", "organizer": 2, "college": 1},
			{"title": "Sports day", "event_date": day(5), "venue": "Main field", "organizer": 3, "college": 1},
			{"title": "Career fair", "event_date": day(12), "venue": "Library lawn", "organizer": 2, "college": 1},
			{"title": "Graduation rehearsal", "event_date": day(40), "venue": "Main hall", "college": 1, "is_active": false},
		}},
		{kumss.PathNotices, []row{
			{"title": "Exam timetable published", "content": "The end of term timetable is on the portal.", "priority": "high", "publish_date": day(-2), "college": 1, "created_by": 1},
			{"title": "Library hours extended", "content": "The library stays open until 10pm during exams.", "priority": "medium", "publish_date": day(-1), "college": 1, "created_by": 1},
			{"title": "Sports day kit collection", "content": "Collect kits from the games office.", "priority": "low", "publish_date": day(0), "event": 2, "college": 1, "created_by": 3},
			{"title": "Fee deadline", "content": "Second instalment is due on Friday.", "priority": "urgent", "publish_date": day(-7), "college": 1, "created_by": 1},
		}},
		{kumss.PathMessageTemplates, []row{
			{"name": "Fee reminder", "code": "FEE_REMINDER", "message_type": "sms", "category": "fee_reminder", "content": "Dear {name}, your balance is {balance}."},
			{"name": "Exam alert", "code": "EXAM_ALERT", "message_type": "email", "category": "exam_alert", "content": "Your exam {exam} starts on {date}."},
			{"name": "General notice", "code": "GENERAL", "message_type": "notification", "category": "general_notice", "content": "{message}"},
		}},
		{kumss.PathBulkMessages, []row{
			{"title": "Fee reminder, term 2", "message_type": "sms", "message": "Please clear your balance.", "template": 1, "status": "sent", "total_recipients": float64(1240), "college": 1, "created_by": 1},
			{"title": "Exam week", "message_type": "email", "message": "Exams start Monday.", "template": 2, "status": "scheduled", "total_recipients": float64(860), "college": 1, "created_by": 1},
			{"title": "Welcome back", "message_type": "notification", "message": "Welcome to the new term.", "status": "draft", "college": 1, "created_by": 1},
		}},
		{kumss.PathChats, []row{
			{"sender": 2, "receiver": 5, "message": "Please see me after class."},
			{"sender": 5, "receiver": 2, "message": "Okay, madam.", "is_read": true},
			{"sender": 1, "receiver": 3, "message": "Sports day budget approved."},
		}},
		{kumss.PathExams, []row{
			{"name": "CAT 1", "code": "CAT1-T2", "exam_type": "internal", "start_date": day(-30), "end_date": day(-28), "max_marks": float64(30), "is_published": true, "college": 1},
			{"name": "Midterm", "code": "MID-T2", "exam_type": "midterm", "start_date": day(3), "end_date": day(7), "max_marks": float64(50), "college": 1},
			{"name": "End of term", "code": "EOT-T2", "exam_type": "final", "start_date": day(45), "end_date": day(55), "max_marks": float64(100), "college": 1},
		}},
		{kumss.PathFeeStructures, []row{
			{"name": "Diploma in Nursing, year 1", "amount": float64(68500), "due_date": day(14), "college": 1},
			{"name": "Certificate in Social Work", "amount": float64(42000), "due_date": day(14), "college": 1},
			{"name": "Hostel, per term", "amount": float64(9500), "due_date": day(7), "college": 1},
		}},
		{kumss.PathStoreItems, []row{
			{"name": "Exercise book A4", "code": "BK-A4", "quantity": float64(1200), "unit_price": float64(45), "college": 1},
			{"name": "Lab coat", "code": "LC-M", "quantity": float64(85), "unit_price": float64(950), "college": 1},
			{"name": "Chalk box", "code": "CH-W", "quantity": float64(0), "unit_price": float64(120), "college": 1, "is_active": false},
		}},
	}
	for _, b := range batches {
		for _, r := range b.rows {
			for k, v := range r {
				if n, ok := v.(int); ok {
					r[k] = float64(n)
				}
			}
			if _, err := s.Create(b.path, r); err != nil {
				return fmt.Errorf("seed %s: %w", b.path, err)
			}
		}
	}
	return nil
}
