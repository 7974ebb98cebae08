package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopcart/storefront/services/checkout-service/models"
)

// UserEmailIndex is the GSI used to list a user's orders.
const UserEmailIndex = "user_email-created_at-index"

// DynamoAPI is the subset of *dynamodb.Client the repository uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoOrderRepository stores orders in a table keyed by `id` (string).
type DynamoOrderRepository struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoOrderRepository(client DynamoAPI, table string) *DynamoOrderRepository {
	return &DynamoOrderRepository{client: client, table: table, now: time.Now}
}

type ddbOrder struct {
	ID              string                 `dynamodbav:"id"`
	UserEmail       string                 `dynamodbav:"user_email"`
	TotalPrice      float64                `dynamodbav:"total_price"`
	Items           []models.OrderItem     `dynamodbav:"items"`
	PaymentStatus   string                 `dynamodbav:"payment_status"`
	PaymentIntentID string                 `dynamodbav:"payment_intent_id,omitempty"`
	PaidAt          string                 `dynamodbav:"paid_at,omitempty"`
	ShippingAddress models.ShippingAddress `dynamodbav:"shipping_address"`
	TrackingCode    string                 `dynamodbav:"tracking_code,omitempty"`
	ShippingStatus  string                 `dynamodbav:"shipping_status,omitempty"`
	TrackingHistory []models.TrackingEntry `dynamodbav:"tracking_history,omitempty"`
	CreatedAt       string                 `dynamodbav:"created_at"`
	UpdatedAt       string                 `dynamodbav:"updated_at"`
}

func toDDB(o *models.Order) ddbOrder {
	d := ddbOrder{
		ID:              o.ID.String(),
		UserEmail:       o.UserEmail,
		TotalPrice:      o.TotalPrice,
		Items:           o.Items,
		PaymentStatus:   o.PaymentStatus,
		PaymentIntentID: o.PaymentIntentID,
		ShippingAddress: o.ShippingAddress,
		TrackingCode:    o.TrackingCode,
		ShippingStatus:  o.ShippingStatus,
		TrackingHistory: o.TrackingHistory,
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if o.PaidAt != nil {
		d.PaidAt = o.PaidAt.UTC().Format(time.RFC3339Nano)
	}
	return d
}

func fromDDB(d ddbOrder) (*models.Order, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("order id %q: %w", d.ID, err)
	}
	o := &models.Order{
		ID:              id,
		UserEmail:       d.UserEmail,
		TotalPrice:      d.TotalPrice,
		Items:           d.Items,
		PaymentStatus:   d.PaymentStatus,
		PaymentIntentID: d.PaymentIntentID,
		ShippingAddress: d.ShippingAddress,
		TrackingCode:    d.TrackingCode,
		ShippingStatus:  d.ShippingStatus,
		TrackingHistory: d.TrackingHistory,
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339Nano, d.CreatedAt)
	o.UpdatedAt, _ = time.Parse(time.RFC3339Nano, d.UpdatedAt)
	if d.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, d.PaidAt); err == nil {
			o.PaidAt = &t
		}
	}
	return o, nil
}

func (r *DynamoOrderRepository) key(id uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id.String()}}
}

func (r *DynamoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := r.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusPending
	}

	item, err := attributevalue.MarshalMap(toDDB(order))
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (r *DynamoOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            r.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrOrderNotFound
	}
	var d ddbOrder
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return fromDDB(d)
}

// FindByUserEmail reads every order of the user from the GSI and pages in memory;
// per-user order counts are small.
func (r *DynamoOrderRepository) FindByUserEmail(ctx context.Context, email string, page, limit int) ([]models.Order, int64, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(UserEmailIndex),
		KeyConditionExpression: aws.String("user_email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		ScanIndexForward: aws.Bool(false),
	})

	var all []models.Order
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("dynamodb Query failed: %w", err)
		}
		var rows []ddbOrder
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
			return nil, 0, fmt.Errorf("unmarshal items: %w", err)
		}
		for _, d := range rows {
			o, err := fromDDB(d)
			if err != nil {
				return nil, 0, err
			}
			all = append(all, *o)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *DynamoOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentIntentID string, paidAt time.Time) (bool, error) {
	ts := paidAt.UTC().Format(time.RFC3339Nano)
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 r.key(id),
		UpdateExpression:    aws.String("SET payment_status = :paid, payment_intent_id = :pi, paid_at = :at, updated_at = :at"),
		ConditionExpression: aws.String("attribute_exists(id) AND payment_status = :pending"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":paid":    &types.AttributeValueMemberS{Value: models.PaymentStatusPaid},
			":pending": &types.AttributeValueMemberS{Value: models.PaymentStatusPending},
			":pi":      &types.AttributeValueMemberS{Value: paymentIntentID},
			":at":      &types.AttributeValueMemberS{Value: ts},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return true, nil
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if len(ccf.Item) == 0 {
			return false, ErrOrderNotFound
		}
		return false, nil
	}
	return false, fmt.Errorf("dynamodb UpdateItem failed: %w", err)
}

func (r *DynamoOrderRepository) StartShipping(ctx context.Context, order *models.Order) (bool, error) {
	in, err := r.shippingUpdate(order)
	if err != nil {
		return false, err
	}
	in.ConditionExpression = aws.String("attribute_exists(id) AND (attribute_not_exists(tracking_code) OR tracking_code = :empty)")
	in.ExpressionAttributeValues[":empty"] = &types.AttributeValueMemberS{Value: ""}
	in.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld

	if _, err := r.client.UpdateItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return false, ErrOrderNotFound
			}
			return false, nil
		}
		return false, fmt.Errorf("dynamodb UpdateItem failed: %w", err)
	}
	return true, nil
}

func (r *DynamoOrderRepository) UpdateShipping(ctx context.Context, order *models.Order) error {
	in, err := r.shippingUpdate(order)
	if err != nil {
		return err
	}
	in.ConditionExpression = aws.String("attribute_exists(id)")

	if _, err := r.client.UpdateItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("dynamodb UpdateItem failed: %w", err)
	}
	return nil
}

func (r *DynamoOrderRepository) shippingUpdate(order *models.Order) (*dynamodb.UpdateItemInput, error) {
	history, err := attributevalue.Marshal(order.TrackingHistory)
	if err != nil {
		return nil, fmt.Errorf("marshal tracking history: %w", err)
	}
	return &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.table),
		Key:              r.key(order.ID),
		UpdateExpression: aws.String("SET tracking_code = :code, shipping_status = :status, tracking_history = :history, updated_at = :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":code":    &types.AttributeValueMemberS{Value: order.TrackingCode},
			":status":  &types.AttributeValueMemberS{Value: order.ShippingStatus},
			":history": history,
			":at":      &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339Nano)},
		},
	}, nil
}

func (r *DynamoOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.table),
		Key:                 r.key(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("dynamodb DeleteItem failed: %w", err)
	}
	return nil
}
