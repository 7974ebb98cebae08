package repository

import ddb "github.com/shopcart/storefront/pkg/dynamodb"

// TableSpecs describes the DynamoDB tables the order and address stores expect.
func TableSpecs(orderTable, addressTable string) []ddb.TableSpec {
	return []ddb.TableSpec{
		{
			Name:    orderTable,
			HashKey: "id",
			Indexes: []ddb.IndexSpec{{Name: UserEmailIndex, HashKey: "user_email", SortKey: "created_at"}},
		},
		{Name: addressTable, HashKey: "user_email"},
	}
}
