package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron robfig/cron包装，用于按表达式调度（如每日限额的零点复位）
type Cron struct {
	c   *cron.Cron
	loc *time.Location
}

func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Cron{c: c, loc: loc}
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { ctx := cr.c.Stop(); <-ctx.Done() }

func (cr *Cron) Add(expr string, job Job) (cron.EntryID, error) {
	return cr.c.AddFunc(expr, func() { job.Run(context.Background()) })
}

// AddDailyMidnight 每天零点执行，用于复位"当日已达上限"一类的日级状态
func (cr *Cron) AddDailyMidnight(fn func(ctx context.Context)) (cron.EntryID, error) {
	return cr.c.AddFunc("0 0 * * *", func() { fn(context.Background()) })
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }
