package core

import (
	"fmt"
	"sync"
)

// Observer represents an entity that observes state machine lifecycle
type Observer interface {
	// OnTransition is called when a state transition occurs
	OnTransition(from string, to string, event Event, ctx Context)

	// OnStateEnter is called when entering a new state
	OnStateEnter(state string, ctx Context)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	OnStateExit(state string, ctx Context)
	OnGuardEvaluation(from string, to string, event Event, result bool, ctx Context)
	OnEventRejected(event Event, reason string, ctx Context)
	OnError(err error, ctx Context)
	OnMachineStarted(ctx Context)
	OnMachineStopped(ctx Context)
}

// BaseObserver provides no-op implementations of every ExtendedObserver method.
// Embed it and override what you need.
type BaseObserver struct{}

func (o *BaseObserver) OnTransition(from string, to string, event Event, ctx Context) {}

func (o *BaseObserver) OnStateEnter(state string, ctx Context) {}

func (o *BaseObserver) OnStateExit(state string, ctx Context) {}

func (o *BaseObserver) OnGuardEvaluation(from string, to string, event Event, result bool, ctx Context) {
}

func (o *BaseObserver) OnEventRejected(event Event, reason string, ctx Context) {}

func (o *BaseObserver) OnError(err error, ctx Context) {}

func (o *BaseObserver) OnMachineStarted(ctx Context) {}

func (o *BaseObserver) OnMachineStopped(ctx Context) {}

// ObserverManager manages a collection of observers. A panicking observer is
// reported through OnError and never reaches the machine.
type ObserverManager struct {
	mutex     sync.RWMutex
	observers []Observer
}

// NewObserverManager creates a new observer manager
func NewObserverManager(observers ...Observer) *ObserverManager {
	om := &ObserverManager{observers: make([]Observer, 0, len(observers))}
	for _, o := range observers {
		om.AddObserver(o)
	}
	return om
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	if observer == nil {
		return
	}
	om.mutex.Lock()
	defer om.mutex.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered observers
func (om *ObserverManager) Len() int {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	return len(om.observers)
}

func (om *ObserverManager) snapshot() []Observer {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}

// each calls fn for every observer, recovering panics.
func (om *ObserverManager) each(hook string, ctx Context, fn func(Observer)) {
	for _, observer := range om.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if extObs, ok := observer.(ExtendedObserver); ok {
						func() {
							defer func() { _ = recover() }()
							extObs.OnError(fmt.Errorf("observer panic in %s: %v", hook, r), ctx)
						}()
					}
				}
			}()
			fn(observer)
		}()
	}
}

// eachExtended is each restricted to ExtendedObserver implementations.
func (om *ObserverManager) eachExtended(hook string, ctx Context, fn func(ExtendedObserver)) {
	om.each(hook, ctx, func(o Observer) {
		if extObs, ok := o.(ExtendedObserver); ok {
			fn(extObs)
		}
	})
}

// NotifyTransition notifies all observers of a state transition
func (om *ObserverManager) NotifyTransition(from string, to string, event Event, ctx Context) {
	om.each("OnTransition", ctx, func(o Observer) { o.OnTransition(from, to, event, ctx) })
}

// NotifyStateEnter notifies all observers of state entry
func (om *ObserverManager) NotifyStateEnter(state string, ctx Context) {
	om.each("OnStateEnter", ctx, func(o Observer) { o.OnStateEnter(state, ctx) })
}

// NotifyStateExit notifies all observers of state exit
func (om *ObserverManager) NotifyStateExit(state string, ctx Context) {
	om.eachExtended("OnStateExit", ctx, func(o ExtendedObserver) { o.OnStateExit(state, ctx) })
}

// NotifyGuardEvaluation notifies all observers of guard evaluation
func (om *ObserverManager) NotifyGuardEvaluation(from string, to string, event Event, result bool, ctx Context) {
	om.eachExtended("OnGuardEvaluation", ctx, func(o ExtendedObserver) {
		o.OnGuardEvaluation(from, to, event, result, ctx)
	})
}

// NotifyEventRejected notifies all observers of event rejection
func (om *ObserverManager) NotifyEventRejected(event Event, reason string, ctx Context) {
	om.eachExtended("OnEventRejected", ctx, func(o ExtendedObserver) { o.OnEventRejected(event, reason, ctx) })
}

// NotifyError notifies all observers of errors
func (om *ObserverManager) NotifyError(err error, ctx Context) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			func() {
				defer func() { _ = recover() }()
				extObs.OnError(err, ctx)
			}()
		}
	}
}

// NotifyMachineStarted notifies all observers that the machine has started
func (om *ObserverManager) NotifyMachineStarted(ctx Context) {
	om.eachExtended("OnMachineStarted", ctx, func(o ExtendedObserver) { o.OnMachineStarted(ctx) })
}

// NotifyMachineStopped notifies all observers that the machine has stopped
func (om *ObserverManager) NotifyMachineStopped(ctx Context) {
	om.eachExtended("OnMachineStopped", ctx, func(o ExtendedObserver) { o.OnMachineStopped(ctx) })
}
