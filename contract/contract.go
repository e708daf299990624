//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"random-chat/domain"
	"random-chat/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives bus events addressed to one endpoint.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IBus delivers events to endpoints and to pairing groups.
type IBus interface {
	Register(endpoint string, sink EventSink)
	Unregister(endpoint string) []domain.GroupID
	JoinGroup(group domain.GroupID, endpoint string) error
	LeaveGroup(group domain.GroupID, endpoint string)
	Members(group domain.GroupID) []string
	SendToGroup(ctx context.Context, group domain.GroupID, e event.Event, except ...string) int
	SendToEndpoint(ctx context.Context, endpoint string, e event.Event) error
	Endpoints() int
	Groups() int
}

// ICoordinator pairs searching participants of the same interest.
type ICoordinator interface {
	AttemptMatch(ctx context.Context, p domain.Participant) (domain.MatchResult, error)
	Withdraw(ctx context.Context, interest, username string) (int, error)
}

// Emitter writes protocol frames to one client connection.
type Emitter interface {
	Emit(ctx context.Context, frame domain.Outbound) error
}

// Inbox is the receiving end of an endpoint sink. Once closed it refuses new events.
type Inbox interface {
	Events() <-chan event.Event
	Close()
}
