package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
)

// Poller periodically re-evaluates two reminder conditions against the
// current time: classes starting within the configured lead and incomplete
// tasks due today. A separate daily job summarizes tomorrow's tasks.
//
// Each (source, date) pair alerts at most once: without suppression the
// per-minute cycle would re-emit the same class reminder every minute of the
// lead window.
//
// The poller issues its own queries and shares no state with calendar
// materialization. A failed cycle is logged and the next one runs as usual;
// there are no retries.
type Poller struct {
	usrSvc   *user.Service
	schedSvc *schedule.Service
	notifier Notifier
	logger   core.Logger
	conf     *core.Config

	cron    *cron.Cron
	nowFunc func() time.Time // mockable

	mu   sync.Mutex
	seen map[string]schedule.Date
}

func NewPoller(
	usrSvc *user.Service,
	schedSvc *schedule.Service,
	notifier Notifier,
	logger core.Logger,
	conf *core.Config,
) *Poller {
	return &Poller{
		usrSvc:   usrSvc,
		schedSvc: schedSvc,
		notifier: notifier,
		logger:   logger,
		conf:     conf,
		nowFunc:  time.Now,
		seen:     make(map[string]schedule.Date),
	}
}

// Start schedules the per-minute reminder cycle and the daily summary, and
// evaluates the reminder conditions once immediately.
func (p *Poller) Start() error {
	p.cron = cron.New()

	if _, err := p.cron.AddFunc("* * * * *", func() { p.RunCycle(p.nowFunc()) }); err != nil {
		return errors.Wrap(err, "scheduling reminder cycle")
	}
	summarySpec := fmt.Sprintf("0 %d * * *", p.conf.Alerts.SummaryHour)
	if _, err := p.cron.AddFunc(summarySpec, func() { p.RunDailySummary(p.nowFunc()) }); err != nil {
		return errors.Wrap(err, "scheduling daily summary")
	}

	p.cron.Start()
	go p.RunCycle(p.nowFunc())
	return nil
}

func (p *Poller) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
}

// RunCycle evaluates the class-starting-soon and task-due-today conditions
// for every active user as of `now`.
func (p *Poller) RunCycle(now time.Time) {
	ctx := context.Background()
	p.pruneSeen(schedule.DateOf(now))

	users, err := p.activeUsers(ctx)
	if err != nil {
		p.logger.Error(fmt.Sprintf("alert cycle: listing users: %v", err), err)
		return
	}

	var alerts []Alert
	for _, usr := range users {
		classAlerts, err := p.checkClassesSoon(ctx, usr, now)
		if err != nil {
			p.logger.Error(fmt.Sprintf("alert cycle: checking classes for %s: %v", usr.Username, err), err, usr)
			continue
		}
		taskAlerts, err := p.checkTasksDueToday(ctx, usr, now)
		if err != nil {
			p.logger.Error(fmt.Sprintf("alert cycle: checking tasks for %s: %v", usr.Username, err), err, usr)
			continue
		}
		alerts = append(alerts, classAlerts...)
		alerts = append(alerts, taskAlerts...)
	}

	if len(alerts) > 0 {
		p.notifier.Notify(alerts...)
	}
}

// RunDailySummary emits, per user, one medium-priority digest of incomplete
// tasks due tomorrow (nothing when there are none).
func (p *Poller) RunDailySummary(now time.Time) {
	ctx := context.Background()

	users, err := p.activeUsers(ctx)
	if err != nil {
		p.logger.Error(fmt.Sprintf("daily summary: listing users: %v", err), err)
		return
	}

	tomorrow := schedule.DateOf(now).AddDays(1)
	pending := false

	var alerts []Alert
	for _, usr := range users {
		tasks, err := p.schedSvc.QueryTasks(ctx, usr.ID, &schedule.TaskFilter{
			DueFrom:     tomorrow,
			DueTo:       tomorrow,
			IsCompleted: &pending,
		})
		if err != nil {
			p.logger.Error(fmt.Sprintf("daily summary: querying tasks for %s: %v", usr.Username, err), err, usr)
			continue
		}
		if len(tasks) == 0 {
			continue
		}

		titles := make([]string, 0, len(tasks))
		for _, task := range tasks {
			titles = append(titles, task.Title)
		}
		alerts = append(alerts, Alert{
			Kind:     KindDueTomorrow,
			Priority: PriorityMedium,
			Title:    fmt.Sprintf("%d task(s) due tomorrow", len(tasks)),
			Body:     strings.Join(titles, ", "),
			User:     usr,
		})
	}

	if len(alerts) > 0 {
		p.notifier.Notify(alerts...)
	}
}

func (p *Poller) activeUsers(ctx context.Context) ([]user.User, error) {
	isActive := true
	return p.usrSvc.Query(ctx, &user.QueryFilter{IsActive: &isActive})
}

func (p *Poller) checkClassesSoon(ctx context.Context, usr user.User, now time.Time) ([]Alert, error) {
	today := schedule.DateOf(now)
	dow := int(today.Weekday())

	subjects, err := p.schedSvc.QuerySubjects(ctx, usr.ID, &schedule.SubjectFilter{DayOfWeek: &dow})
	if err != nil {
		return nil, err
	}

	lead := int(p.conf.Alerts.ClassReminderLead.Minutes())
	var alerts []Alert
	for _, sub := range subjects {
		mins := sub.StartTime.MinutesUntil(now)
		if mins <= 0 || mins > lead {
			continue
		}
		if !p.markSeen("class:"+sub.ID, today) {
			continue
		}
		alerts = append(alerts, Alert{
			Kind:     KindClassSoon,
			Priority: PriorityHigh,
			Title:    fmt.Sprintf("%s starts soon", sub.Name),
			Body:     fmt.Sprintf("%s starts at %s (in %d min)", sub.Name, sub.StartTime, mins),
			User:     usr,
		})
	}
	return alerts, nil
}

func (p *Poller) checkTasksDueToday(ctx context.Context, usr user.User, now time.Time) ([]Alert, error) {
	today := schedule.DateOf(now)
	pending := false

	tasks, err := p.schedSvc.QueryTasks(ctx, usr.ID, &schedule.TaskFilter{
		DueFrom:     today,
		DueTo:       today,
		IsCompleted: &pending,
	})
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	for _, task := range tasks {
		if !p.markSeen("task:"+task.ID, today) {
			continue
		}
		alerts = append(alerts, Alert{
			Kind:     KindTaskDue,
			Priority: TaskPriority(task.Priority),
			Title:    fmt.Sprintf("%s is due today", task.Title),
			Body:     fmt.Sprintf("%q is due today (%s priority)", task.Title, TaskPriority(task.Priority)),
			User:     usr,
		})
	}
	return alerts, nil
}

// markSeen records key for date; false if it already fired.
func (p *Poller) markSeen(key string, date schedule.Date) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seen, ok := p.seen[key]; ok && seen.Equal(date) {
		return false
	}
	p.seen[key] = date
	return true
}

// pruneSeen drops suppression entries from past days.
func (p *Poller) pruneSeen(today schedule.Date) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, date := range p.seen {
		if date.Before(today) {
			delete(p.seen, key)
		}
	}
}
