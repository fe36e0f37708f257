package state

// AddCommand enqueues a front-end command. Commands are drained by exactly
// one consumer loop, so they execute strictly in submission order.
//
// Returns:
//   - error: ErrQueueFull when the FIFO is at capacity
func (a *Aggregator) AddCommand(name string, data map[string]any) error {
	select {
	case a.commands <- Command{Name: name, Data: data}:
		return nil
	default:
		a.logger.Warn("command queue full, rejecting", "command", name)
		return ErrQueueFull
	}
}

// runCommandLoop is the single consumer of the command FIFO. A panicking
// handler is contained so one bad command cannot take the loop down.
func (a *Aggregator) runCommandLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.stop:
			return
		case cmd := <-a.commands:
			a.execute(cmd)
		}
	}
}

func (a *Aggregator) execute(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("command handler panicked",
				"command", cmd.Name,
				"panic", r,
			)
		}
	}()

	if a.handler == nil {
		a.logger.Warn("command dropped, no handler configured", "command", cmd.Name)
		return
	}
	a.handler(a.runCtx, cmd.Name, cmd.Data)
}
