package patient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	billingpb "github.com/pm/platform/proto/billing"
)

// GRPCBillingClient calls the billing service over gRPC.
type GRPCBillingClient struct {
	conn   *grpc.ClientConn
	client billingpb.BillingServiceClient
}

// NewGRPCBillingClient connects to the billing service at addr.
func NewGRPCBillingClient(addr string) (*GRPCBillingClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to billing service at %s: %w", addr, err)
	}
	return &GRPCBillingClient{
		conn:   conn,
		client: billingpb.NewBillingServiceClient(conn),
	}, nil
}

// CreateAccount opens a billing account for a patient.
func (c *GRPCBillingClient) CreateAccount(ctx context.Context, patientID, name, email string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := c.client.CreateBillingAccount(ctx, &billingpb.BillingRequest{
		PatientId: patientID,
		Name:      name,
		Email:     email,
	})
	if err != nil {
		return "", "", fmt.Errorf("creating billing account: %w", err)
	}
	return resp.GetAccountId(), resp.GetStatus(), nil
}

// Close releases the underlying connection.
func (c *GRPCBillingClient) Close() error {
	return c.conn.Close()
}
