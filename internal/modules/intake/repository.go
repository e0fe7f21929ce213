package intake

import "context"

// Repository defines storage for sell requests, delivery tasks and intakes.
type Repository interface {
	CreateSellRequest(ctx context.Context, req *SellRequest) error
	GetSellRequest(ctx context.Context, id string) (*SellRequest, error)
	ListSellRequests(ctx context.Context, status SellStatus) ([]*SellRequest, error)
	UpdateSellRequest(ctx context.Context, req *SellRequest) error

	CreateTask(ctx context.Context, task *DeliveryTask) error
	GetTask(ctx context.Context, id string) (*DeliveryTask, error)
	ListTasks(ctx context.Context, assignedTo string) ([]*DeliveryTask, error)
	UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) error

	CreateIntake(ctx context.Context, in *Intake) error
	GetIntake(ctx context.Context, id string) (*Intake, error)
	ListIntakes(ctx context.Context, filter IntakeFilter) ([]*Intake, error)
}
