package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopcart/storefront/services/checkout-service/models"
)

// DynamoAddressRepository stores addresses in a table keyed by `user_email`.
type DynamoAddressRepository struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoAddressRepository(client DynamoAPI, table string) *DynamoAddressRepository {
	return &DynamoAddressRepository{client: client, table: table, now: time.Now}
}

type ddbAddress struct {
	UserEmail string `dynamodbav:"user_email"`
	ID        string `dynamodbav:"id"`
	models.ShippingAddress
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func (r *DynamoAddressRepository) FindByUserEmail(ctx context.Context, email string) (*models.Address, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       map[string]types.AttributeValue{"user_email": &types.AttributeValueMemberS{Value: email}},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrAddressNotFound
	}

	var d ddbAddress
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	a := &models.Address{UserEmail: d.UserEmail, ShippingAddress: d.ShippingAddress}
	a.ID, _ = uuid.Parse(d.ID)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, d.CreatedAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, d.UpdatedAt)
	return a, nil
}

// Upsert keeps the id and created_at of an existing record.
func (r *DynamoAddressRepository) Upsert(ctx context.Context, addr *models.Address) error {
	if addr.ID == uuid.Nil {
		addr.ID = uuid.New()
	}
	now := r.now().UTC().Format(time.RFC3339Nano)

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key:       map[string]types.AttributeValue{"user_email": &types.AttributeValueMemberS{Value: addr.UserEmail}},
		UpdateExpression: aws.String("SET id = if_not_exists(id, :id), created_at = if_not_exists(created_at, :now), " +
			"#phone = :phone, #street = :street, #city = :city, #state = :state, #postal = :postal, #country = :country, updated_at = :now"),
		// Several address attribute names are DynamoDB reserved words.
		ExpressionAttributeNames: map[string]string{
			"#phone":   "phone",
			"#street":  "street",
			"#city":    "city",
			"#state":   "state",
			"#postal":  "postal_code",
			"#country": "country",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id":      &types.AttributeValueMemberS{Value: addr.ID.String()},
			":now":     &types.AttributeValueMemberS{Value: now},
			":phone":   &types.AttributeValueMemberS{Value: addr.Phone},
			":street":  &types.AttributeValueMemberS{Value: addr.Street},
			":city":    &types.AttributeValueMemberS{Value: addr.City},
			":state":   &types.AttributeValueMemberS{Value: addr.State},
			":postal":  &types.AttributeValueMemberS{Value: addr.PostalCode},
			":country": &types.AttributeValueMemberS{Value: addr.Country},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb UpdateItem failed: %w", err)
	}
	return nil
}
