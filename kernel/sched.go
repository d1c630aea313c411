package kernel

func (k *Kernel) initScheduler() {
	k.log.Info("initializing scheduler")
	k.runQueue.Init()
	k.sleepQueue.Init()
	k.active = noProc
	if _, err := k.timer.Register(k.Tick, 1, -1); err != nil {
		k.panicf("sched", "unable to register scheduler timer: %v", err)
	}
}

// Active returns the process referenced as running, nil if none.
func (k *Kernel) Active() *Proc {
	if k.active == noProc {
		return nil
	}
	return &k.procs[k.active]
}

// RunQueue returns the queue of runnable pids.
func (k *Kernel) RunQueue() *Queue { return &k.runQueue }

// SleepQueue returns the queue of sleeping pids.
func (k *Kernel) SleepQueue() *Queue { return &k.sleepQueue }

// Add makes p runnable: it becomes IDLE with a fresh timeslice and joins the
// tail of the run queue. The idle process is never queued.
func (k *Kernel) Add(p *Proc) {
	if k.ProcToEntry(p) < 0 {
		k.panicf("sched", "invalid process")
		return
	}
	if p.queue != nil {
		k.unqueue(p)
	}

	p.State = StateIdle
	p.CPUTime = 0
	if p.PID == 0 {
		return
	}

	if err := k.runQueue.Enqueue(p.PID); err != nil {
		k.panicf("sched", "unable to add pid %d to the run queue: %v", p.PID, err)
		return
	}
	p.queue = &k.runQueue
}

// Remove takes p out of whichever queue holds it, keeping the order of the
// remaining entries. If p was running the active reference is cleared so the
// next Run picks a replacement.
func (k *Kernel) Remove(p *Proc) {
	slot := k.ProcToEntry(p)
	if slot < 0 {
		k.panicf("sched", "invalid process")
		return
	}
	k.unqueue(p)
	if slot == k.active {
		k.active = noProc
	}
}

func (k *Kernel) unqueue(p *Proc) {
	q := p.queue
	if q == nil {
		return
	}
	pid := p.PID
	q.Filter(func(v int) bool { return v != pid })
	p.queue = nil
}

// Sleep suspends p for the given number of ticks.
func (k *Kernel) Sleep(p *Proc, ticks uint64) {
	if k.ProcToEntry(p) < 0 {
		k.panicf("sched", "invalid process")
		return
	}
	if p.PID == 0 {
		k.panicf("sched", "idle process cannot sleep")
		return
	}

	p.SleepTime = k.timer.Ticks() + ticks
	p.State = StateSleeping
	k.Remove(p)

	if err := k.sleepQueue.Enqueue(p.PID); err != nil {
		k.panicf("sched", "unable to add pid %d to the sleep queue: %v", p.PID, err)
		return
	}
	p.queue = &k.sleepQueue
	k.log.Debug("process sleeping", "pid", p.PID, "until", p.SleepTime)
}

// Tick charges one timer tick to the running process. It never reschedules.
func (k *Kernel) Tick() {
	if p := k.Active(); p != nil {
		p.RunTime++
		p.CPUTime++
	}
}

// Run is the scheduling decision point. On return exactly one process is
// ACTIVE, the idle process if nothing else is runnable.
func (k *Kernel) Run() {
	// Drop a reference to a process whose state was changed behind our
	// back (exit, sleep).
	if p := k.Active(); p != nil && p.State != StateActive {
		k.active = noProc
	}

	if p := k.Active(); p != nil && p.CPUTime >= k.cfg.Timeslice {
		p.CPUTime = 0
		if p.PID != 0 {
			k.Add(p)
		} else {
			p.State = StateIdle
		}
		k.log.Debug("unscheduling process", "pid", p.PID, "name", p.Name())
		k.active = noProc
	}

	if k.active == noProc {
		k.wake()

		pid, err := k.runQueue.Dequeue()
		if err != nil {
			pid = 0
		}

		p := k.Lookup(pid)
		if p == nil {
			k.panicf("sched", "unable to schedule pid %d", pid)
			return
		}
		p.queue = nil
		k.active = k.ProcToEntry(p)
		k.log.Debug("scheduling process", "pid", p.PID, "name", p.Name())
	}

	k.procs[k.active].State = StateActive
}

// wake sweeps the sleep queue once, moving every process whose deadline has
// passed to the run queue. The sweep is bounded by the queue size at its
// start.
func (k *Kernel) wake() {
	if k.sleepQueue.IsEmpty() {
		return
	}

	now := k.timer.Ticks()
	n := k.sleepQueue.Size()
	for i := 0; i < n; i++ {
		pid, err := k.sleepQueue.Dequeue()
		if err != nil {
			k.panicf("sched", "unable to dequeue from the sleep queue: %v", err)
			return
		}
		p := k.Lookup(pid)
		if p == nil {
			k.panicf("sched", "invalid pid %d in the sleep queue", pid)
			return
		}

		if now >= p.SleepTime {
			p.queue = nil
			k.Add(p)
			k.log.Debug("process woke up", "pid", p.PID, "name", p.Name())
			continue
		}
		if err := k.sleepQueue.Enqueue(pid); err != nil {
			k.panicf("sched", "unable to requeue pid %d: %v", pid, err)
			return
		}
	}
}
