package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const testSchool = "school-1"

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

type teacherStoreStub struct {
	items   map[string]*models.Teacher
	loads   []models.TeacherLoad
	updates map[string]int
}

func newTeacherStore(teachers ...models.Teacher) *teacherStoreStub {
	s := &teacherStoreStub{items: map[string]*models.Teacher{}, updates: map[string]int{}}
	for i := range teachers {
		t := teachers[i]
		if t.SchoolID == "" {
			t.SchoolID = testSchool
		}
		s.items[t.ID] = &t
	}
	return s
}

func (s *teacherStoreStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := s.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *teacherStoreStub) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, t := range s.items {
		if t.SchoolID == schoolID && t.IsActive {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *teacherStoreStub) ListLoads(ctx context.Context, q models.AvailabilityQuery) ([]models.TeacherLoad, error) {
	return s.loads, nil
}

func (s *teacherStoreStub) UpdateCurrentPeriods(ctx context.Context, id string, periods int) error {
	teacher, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	teacher.CurrentPeriodsPerWeek = periods
	s.updates[id] = periods
	return nil
}

type subjectStoreStub struct {
	items map[string]*models.Subject
}

func newSubjectStore(subjects ...models.Subject) *subjectStoreStub {
	s := &subjectStoreStub{items: map[string]*models.Subject{}}
	for i := range subjects {
		sub := subjects[i]
		if sub.SchoolID == "" {
			sub.SchoolID = testSchool
		}
		s.items[sub.ID] = &sub
	}
	return s
}

func (s *subjectStoreStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := s.items[id]; ok {
		cp := *subject
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectStoreStub) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Subject, error) {
	var out []models.Subject
	for _, sub := range s.items {
		if sub.SchoolID == schoolID && sub.IsActive {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type unitStoreStub struct {
	items map[string]*models.AcademicUnit
}

func newUnitStore(units ...models.AcademicUnit) *unitStoreStub {
	s := &unitStoreStub{items: map[string]*models.AcademicUnit{}}
	for i := range units {
		u := units[i]
		if u.SchoolID == "" {
			u.SchoolID = testSchool
		}
		s.items[u.ID] = &u
	}
	return s
}

func (s *unitStoreStub) FindByID(ctx context.Context, id string) (*models.AcademicUnit, error) {
	if unit, ok := s.items[id]; ok {
		cp := *unit
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *unitStoreStub) name(id string) string {
	if unit, ok := s.items[id]; ok {
		return unit.Name
	}
	return ""
}

type timetableStoreStub struct {
	items     map[string]*models.Timetable
	periods   map[string][]models.TemplatePeriod
	listCalls int
}

func newTimetableStore(timetables ...models.Timetable) *timetableStoreStub {
	s := &timetableStoreStub{items: map[string]*models.Timetable{}, periods: map[string][]models.TemplatePeriod{}}
	for i := range timetables {
		tt := timetables[i]
		if tt.SchoolID == "" {
			tt.SchoolID = testSchool
		}
		s.items[tt.ID] = &tt
	}
	return s
}

func (s *timetableStoreStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	if tt, ok := s.items[id]; ok {
		cp := *tt
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timetableStoreStub) UpdateStatus(ctx context.Context, id string, status models.TimetableStatus, publishedAt *time.Time) error {
	tt, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	tt.Status = status
	if publishedAt != nil {
		tt.PublishedAt = publishedAt
	}
	return nil
}

func (s *timetableStoreStub) ListPeriods(ctx context.Context, templateID string) ([]models.TemplatePeriod, error) {
	s.listCalls++
	return s.periods[templateID], nil
}

func (s *timetableStoreStub) GetPeriod(ctx context.Context, templateID string, periodNumber int) (*models.TemplatePeriod, error) {
	for _, p := range s.periods[templateID] {
		if p.PeriodNumber == periodNumber {
			cp := p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *timetableStoreStub) addPeriod(templateID string, number int, start, end string) {
	s.periods[templateID] = append(s.periods[templateID], models.TemplatePeriod{
		TemplateID:   templateID,
		PeriodNumber: number,
		StartTime:    strPtr(start),
		EndTime:      strPtr(end),
	})
}

// slotStoreStub answers occupancy queries from an in-memory slot table using
// the same scope rules as the SQL repository.
type slotStoreStub struct {
	timetables *timetableStoreStub
	units      *unitStoreStub
	teachers   *teacherStoreStub
	subjects   *subjectStoreStub
	items      map[string]*models.TimetableSlot
	seq        int
	createErr  error
}

func newSlotStore(timetables *timetableStoreStub, units *unitStoreStub, teachers *teacherStoreStub, subjects *subjectStoreStub) *slotStoreStub {
	return &slotStoreStub{
		timetables: timetables,
		units:      units,
		teachers:   teachers,
		subjects:   subjects,
		items:      map[string]*models.TimetableSlot{},
	}
}

func (s *slotStoreStub) add(slot models.TimetableSlot) {
	if slot.SchoolID == "" {
		slot.SchoolID = testSchool
	}
	if slot.SlotType == "" {
		slot.SlotType = models.SlotTypeRegular
	}
	slot.IsActive = true
	s.items[slot.ID] = &slot
}

func (s *slotStoreStub) inScope(slot *models.TimetableSlot) bool {
	tt, ok := s.timetables.items[slot.TimetableID]
	return ok && tt.Editable()
}

func (s *slotStoreStub) FindByID(ctx context.Context, id string) (*models.TimetableSlot, error) {
	if slot, ok := s.items[id]; ok {
		cp := *slot
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *slotStoreStub) FindActiveAt(ctx context.Context, timetableID string, day, period int, excludeID string) (*models.TimetableSlot, error) {
	for _, slot := range s.items {
		if slot.IsActive && slot.ID != excludeID && slot.TimetableID == timetableID && slot.DayOfWeek == day && slot.PeriodNumber == period {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *slotStoreStub) teaching(schoolID, teacherID, excludeID string) []*models.TimetableSlot {
	var out []*models.TimetableSlot
	for _, slot := range s.items {
		if !slot.IsActive || slot.ID == excludeID || slot.SchoolID != schoolID || derefString(slot.TeacherID) != teacherID {
			continue
		}
		if !slot.SlotType.OccupiesTeacher() || !s.inScope(slot) {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodNumber < out[j].PeriodNumber })
	return out
}

func (s *slotStoreStub) ListTeacherDaySlots(ctx context.Context, schoolID, teacherID string, day int, excludeID string) ([]models.BusySlot, error) {
	var out []models.BusySlot
	for _, slot := range s.teaching(schoolID, teacherID, excludeID) {
		if slot.DayOfWeek != day {
			continue
		}
		tt := s.timetables.items[slot.TimetableID]
		busy := models.BusySlot{
			SlotID:        slot.ID,
			TimetableID:   tt.ID,
			TimetableName: tt.Name,
			UnitName:      s.units.name(tt.AcademicUnitID),
			DayOfWeek:     slot.DayOfWeek,
			PeriodNumber:  slot.PeriodNumber,
		}
		if tt.TemplateID != nil {
			if p, err := s.timetables.GetPeriod(ctx, *tt.TemplateID, slot.PeriodNumber); err == nil {
				busy.StartTime, busy.EndTime = p.StartTime, p.EndTime
			}
		}
		out = append(out, busy)
	}
	return out, nil
}

func (s *slotStoreStub) CountTeacherSlots(ctx context.Context, schoolID, teacherID string, day int, excludeID string) (int, int, error) {
	daily, weekly := 0, 0
	for _, slot := range s.teaching(schoolID, teacherID, excludeID) {
		weekly++
		if slot.DayOfWeek == day {
			daily++
		}
	}
	return daily, weekly, nil
}

func (s *slotStoreStub) Create(ctx context.Context, slot *models.TimetableSlot) error {
	if s.createErr != nil {
		return s.createErr
	}
	if slot.ID == "" {
		s.seq++
		slot.ID = fmt.Sprintf("slot-new-%d", s.seq)
	}
	slot.IsActive = true
	cp := *slot
	s.items[slot.ID] = &cp
	return nil
}

func (s *slotStoreStub) Update(ctx context.Context, slot *models.TimetableSlot) error {
	existing, ok := s.items[slot.ID]
	if !ok || !existing.IsActive {
		return sql.ErrNoRows
	}
	cp := *slot
	cp.IsActive = true
	s.items[slot.ID] = &cp
	return nil
}

func (s *slotStoreStub) Deactivate(ctx context.Context, id string) error {
	slot, ok := s.items[id]
	if !ok || !slot.IsActive {
		return sql.ErrNoRows
	}
	slot.IsActive = false
	return nil
}

func (s *slotStoreStub) detail(slot *models.TimetableSlot) models.SlotDetail {
	d := models.SlotDetail{TimetableSlot: *slot}
	if slot.SubjectID != nil {
		if sub, ok := s.subjects.items[*slot.SubjectID]; ok {
			d.SubjectCode, d.SubjectName = strPtr(sub.Code), strPtr(sub.Name)
		}
	}
	if slot.TeacherID != nil {
		if t, ok := s.teachers.items[*slot.TeacherID]; ok {
			d.TeacherName = strPtr(t.FullName)
		}
	}
	d.Expand()
	return d
}

func (s *slotStoreStub) GetDetail(ctx context.Context, id string) (*models.SlotDetail, error) {
	slot, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := s.detail(slot)
	return &d, nil
}

func (s *slotStoreStub) ListDetails(ctx context.Context, timetableID string) ([]models.SlotDetail, error) {
	var out []models.SlotDetail
	for _, slot := range s.items {
		if slot.IsActive && slot.TimetableID == timetableID {
			out = append(out, s.detail(slot))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].PeriodNumber < out[j].PeriodNumber
	})
	return out, nil
}

func (s *slotStoreStub) active(timetableID string) []models.TimetableSlot {
	var out []models.TimetableSlot
	for _, slot := range s.items {
		if slot.IsActive && slot.TimetableID == timetableID {
			out = append(out, *slot)
		}
	}
	return out
}

type subjectTeacherStoreStub struct {
	teachers *teacherStoreStub
	subjects *subjectStoreStub
	units    *unitStoreStub
	items    map[string]*models.TeacherClassAssignment
	seq      int
}

func newSubjectTeacherStore(teachers *teacherStoreStub, subjects *subjectStoreStub, units *unitStoreStub) *subjectTeacherStoreStub {
	return &subjectTeacherStoreStub{teachers: teachers, subjects: subjects, units: units, items: map[string]*models.TeacherClassAssignment{}}
}

func (s *subjectTeacherStoreStub) add(a models.TeacherClassAssignment) {
	if a.SchoolID == "" {
		a.SchoolID = testSchool
	}
	a.IsActive = true
	s.items[a.ID] = &a
}

func (s *subjectTeacherStoreStub) FindByID(ctx context.Context, id string) (*models.TeacherClassAssignment, error) {
	if a, ok := s.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectTeacherStoreStub) detail(a *models.TeacherClassAssignment) models.SubjectTeacherDetail {
	d := models.SubjectTeacherDetail{TeacherClassAssignment: *a, UnitName: s.units.name(a.AcademicUnitID)}
	if t, ok := s.teachers.items[a.TeacherID]; ok {
		d.TeacherName = t.FullName
	}
	if sub, ok := s.subjects.items[a.SubjectID]; ok {
		d.SubjectCode, d.SubjectName = sub.Code, sub.Name
	}
	return d
}

func (s *subjectTeacherStoreStub) GetDetail(ctx context.Context, id string) (*models.SubjectTeacherDetail, error) {
	a, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := s.detail(a)
	return &d, nil
}

func (s *subjectTeacherStoreStub) ExistsActive(ctx context.Context, teacherID, subjectID, unitID, yearID, excludeID string) (bool, error) {
	for _, a := range s.items {
		if a.IsActive && a.ID != excludeID && a.TeacherID == teacherID && a.SubjectID == subjectID && a.AcademicUnitID == unitID && a.AcademicYearID == yearID {
			return true, nil
		}
	}
	return false, nil
}

func (s *subjectTeacherStoreStub) SumActivePeriods(ctx context.Context, teacherID, yearID, excludeID string) (int, error) {
	total := 0
	for _, a := range s.items {
		if a.IsActive && a.ID != excludeID && a.TeacherID == teacherID && a.AcademicYearID == yearID {
			total += a.PeriodsPerWeek
		}
	}
	return total, nil
}

func (s *subjectTeacherStoreStub) ListActiveByUnitSubject(ctx context.Context, unitID, subjectID, yearID string) ([]models.SubjectTeacherDetail, error) {
	var out []models.SubjectTeacherDetail
	for _, a := range s.items {
		if a.IsActive && a.AcademicUnitID == unitID && a.SubjectID == subjectID && a.AcademicYearID == yearID {
			out = append(out, s.detail(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *subjectTeacherStoreStub) ListByUnit(ctx context.Context, unitID, yearID string, includeInactive bool) ([]models.SubjectTeacherDetail, error) {
	var out []models.SubjectTeacherDetail
	for _, a := range s.items {
		if a.AcademicUnitID == unitID && a.AcademicYearID == yearID && (includeInactive || a.IsActive) {
			out = append(out, s.detail(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *subjectTeacherStoreStub) Create(ctx context.Context, a *models.TeacherClassAssignment) error {
	if a.ID == "" {
		s.seq++
		a.ID = fmt.Sprintf("sta-new-%d", s.seq)
	}
	cp := *a
	s.items[a.ID] = &cp
	return nil
}

func (s *subjectTeacherStoreStub) Update(ctx context.Context, a *models.TeacherClassAssignment) error {
	if _, ok := s.items[a.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *a
	s.items[a.ID] = &cp
	return nil
}

type classTeacherStoreStub struct {
	teachers *teacherStoreStub
	units    *unitStoreStub
	items    map[string]*models.ClassTeacher
	seq      int
}

func newClassTeacherStore(teachers *teacherStoreStub, units *unitStoreStub) *classTeacherStoreStub {
	return &classTeacherStoreStub{teachers: teachers, units: units, items: map[string]*models.ClassTeacher{}}
}

func (s *classTeacherStoreStub) add(ct models.ClassTeacher) {
	if ct.SchoolID == "" {
		ct.SchoolID = testSchool
	}
	ct.IsActive = true
	s.items[ct.ID] = &ct
}

func (s *classTeacherStoreStub) detail(ct *models.ClassTeacher) models.ClassTeacherDetail {
	d := models.ClassTeacherDetail{ClassTeacher: *ct, UnitName: s.units.name(ct.AcademicUnitID)}
	if t, ok := s.teachers.items[ct.TeacherID]; ok {
		d.TeacherName = t.FullName
	}
	return d
}

func (s *classTeacherStoreStub) FindByID(ctx context.Context, id string) (*models.ClassTeacher, error) {
	if ct, ok := s.items[id]; ok {
		cp := *ct
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *classTeacherStoreStub) GetDetail(ctx context.Context, id string) (*models.ClassTeacherDetail, error) {
	ct, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := s.detail(ct)
	return &d, nil
}

func (s *classTeacherStoreStub) ExistsActiveForTeacher(ctx context.Context, teacherID, unitID, yearID, excludeID string) (bool, error) {
	for _, ct := range s.items {
		if ct.IsActive && ct.ID != excludeID && ct.TeacherID == teacherID && ct.AcademicUnitID == unitID && ct.AcademicYearID == yearID {
			return true, nil
		}
	}
	return false, nil
}

func (s *classTeacherStoreStub) FindActiveByRole(ctx context.Context, unitID, yearID string, isPrimary bool, excludeID string) (*models.ClassTeacherDetail, error) {
	for _, ct := range s.items {
		if ct.IsActive && ct.ID != excludeID && ct.AcademicUnitID == unitID && ct.AcademicYearID == yearID && ct.IsPrimary == isPrimary {
			d := s.detail(ct)
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *classTeacherStoreStub) CountActiveByTeacher(ctx context.Context, teacherID, yearID, excludeID string) (int, error) {
	count := 0
	for _, ct := range s.items {
		if ct.IsActive && ct.ID != excludeID && ct.TeacherID == teacherID && ct.AcademicYearID == yearID {
			count++
		}
	}
	return count, nil
}

func (s *classTeacherStoreStub) ListByUnit(ctx context.Context, unitID, yearID string, includeInactive bool) ([]models.ClassTeacherDetail, error) {
	var out []models.ClassTeacherDetail
	for _, ct := range s.items {
		if ct.AcademicUnitID == unitID && ct.AcademicYearID == yearID && (includeInactive || ct.IsActive) {
			out = append(out, s.detail(ct))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *classTeacherStoreStub) Create(ctx context.Context, ct *models.ClassTeacher) error {
	if ct.ID == "" {
		s.seq++
		ct.ID = fmt.Sprintf("ct-new-%d", s.seq)
	}
	cp := *ct
	s.items[ct.ID] = &cp
	return nil
}

func (s *classTeacherStoreStub) Update(ctx context.Context, ct *models.ClassTeacher) error {
	if _, ok := s.items[ct.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *ct
	s.items[ct.ID] = &cp
	return nil
}

type historyStoreStub struct {
	entries []models.AssignmentHistory
	err     error
}

func (s *historyStoreStub) Insert(ctx context.Context, entry *models.AssignmentHistory) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *historyStoreStub) List(ctx context.Context, schoolID string, category models.AssignmentCategory, assignmentID string) ([]models.AssignmentHistory, error) {
	var out []models.AssignmentHistory
	for _, e := range s.entries {
		if e.SchoolID == schoolID && e.Category == category && e.AssignmentID == assignmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type auditCall struct {
	action   models.HistoryAction
	category models.AssignmentCategory
	entry    models.AuditEntry
}

type auditSinkStub struct {
	calls []auditCall
}

func (s *auditSinkStub) record(action models.HistoryAction, category models.AssignmentCategory, entry models.AuditEntry) {
	s.calls = append(s.calls, auditCall{action: action, category: category, entry: entry})
}

func (s *auditSinkStub) LogCreate(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry) {
	s.record(models.HistoryActionCreate, category, entry)
}

func (s *auditSinkStub) LogModification(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry) {
	s.record(models.HistoryActionModify, category, entry)
}

func (s *auditSinkStub) LogDeactivation(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry) {
	s.record(models.HistoryActionDeactivate, category, entry)
}

func (s *auditSinkStub) LogReactivation(ctx context.Context, category models.AssignmentCategory, entry models.AuditEntry) {
	s.record(models.HistoryActionReactivate, category, entry)
}

// txRecorder counts transactions and runs fn inline.
type txRecorder struct {
	runs int
}

func (t *txRecorder) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.runs++
	return fn(ctx)
}

type cacheRepoStub struct {
	items   map[string][]byte
	deleted []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{items: map[string][]byte{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.items[key] = raw
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.items, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	return nil
}
