package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fpang/redo-ai/internal/credits"
)

// fakeDynamo evaluates just enough of the store's expressions to exercise
// its control flow.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func str(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func num(av types.AttributeValue) int {
	n, _ := strconv.Atoi(str(av))
	return n
}

func itemKey(k map[string]types.AttributeValue) string {
	return str(k["PK"]) + "|" + str(k["SK"])
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	k := itemKey(in.Key)
	item, exists := f.items[k]
	amt := num(in.ExpressionAttributeValues[":amt"])
	base := num(in.ExpressionAttributeValues[":starter"])
	if exists {
		base = num(item["balance"])
	}

	if in.ConditionExpression != nil {
		cond := *in.ConditionExpression
		ok := exists && base >= amt
		if !exists && strings.Contains(cond, "attribute_not_exists(balance)") {
			ok = true
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}

	next := base + amt
	if strings.Contains(*in.UpdateExpression, "- :amt") {
		next = base - amt
	}
	attrs := map[string]types.AttributeValue{
		"balance":   &types.AttributeValueMemberN{Value: strconv.Itoa(next)},
		"updatedAt": in.ExpressionAttributeValues[":now"],
	}
	stored := map[string]types.AttributeValue{"PK": in.Key["PK"], "SK": in.Key["SK"]}
	for name, v := range attrs {
		stored[name] = v
	}
	f.items[k] = stored
	return &dynamodb.UpdateItemOutput{Attributes: attrs}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pk := str(in.ExpressionAttributeValues[":pk"])
	prefix := str(in.ExpressionAttributeValues[":skPrefix"])

	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if str(item["PK"]) == pk && strings.HasPrefix(str(item["SK"]), prefix) {
			out = append(out, item)
		}
	}
	desc := in.ScanIndexForward != nil && !*in.ScanIndexForward
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return str(out[i]["SK"]) > str(out[j]["SK"])
		}
		return str(out[i]["SK"]) < str(out[j]["SK"])
	})
	if in.Limit != nil && int(*in.Limit) < len(out) {
		out = out[:*in.Limit]
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func TestDynamoStore_BalanceStartsAtStarter(t *testing.T) {
	s := newDynamoStore(newFakeDynamo(), "redo", 3)
	n, err := s.Balance(context.Background(), "u1")
	if err != nil || n != 3 {
		t.Errorf("expected starter balance 3, got %d (%v)", n, err)
	}
}

func TestDynamoStore_ReserveAndRefund(t *testing.T) {
	ctx := context.Background()
	s := newDynamoStore(newFakeDynamo(), "redo", 2)

	for want := 1; want >= 0; want-- {
		n, err := s.Reserve(ctx, "u1", 1)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if n != want {
			t.Errorf("expected balance %d, got %d", want, n)
		}
	}

	if _, err := s.Reserve(ctx, "u1", 1); !errors.Is(err, credits.ErrInsufficient) {
		t.Errorf("expected ErrInsufficient, got %v", err)
	}
	if n, _ := s.Balance(ctx, "u1"); n != 0 {
		t.Errorf("refused reservation must not change the balance, got %d", n)
	}

	n, err := s.Refund(ctx, "u1", 1)
	if err != nil || n != 1 {
		t.Errorf("expected 1 after refund, got %d (%v)", n, err)
	}
	n, err = s.Grant(ctx, "u1", 10)
	if err != nil || n != 11 {
		t.Errorf("expected 11 after grant, got %d (%v)", n, err)
	}
}

func TestDynamoStore_ReserveWithoutStarter(t *testing.T) {
	s := newDynamoStore(newFakeDynamo(), "redo", 0)
	if _, err := s.Reserve(context.Background(), "new-user", 1); !errors.Is(err, credits.ErrInsufficient) {
		t.Errorf("expected ErrInsufficient for a new user without starter credits, got %v", err)
	}
}

func TestDynamoStore_InvalidAmounts(t *testing.T) {
	s := newDynamoStore(newFakeDynamo(), "redo", 3)
	if _, err := s.Reserve(context.Background(), "u1", 0); err == nil {
		t.Error("expected error reserving zero")
	}
	if _, err := s.Grant(context.Background(), "u1", -5); err == nil {
		t.Error("expected error granting a negative amount")
	}
}

func TestDynamoStore_ErrorsAreWrapped(t *testing.T) {
	fake := newFakeDynamo()
	fake.err = errors.New("throttled")
	s := newDynamoStore(fake, "redo", 3)

	_, err := s.Reserve(context.Background(), "u1", 1)
	if err == nil || errors.Is(err, credits.ErrInsufficient) {
		t.Fatalf("expected a wrapped service error, got %v", err)
	}
	if !errors.Is(err, fake.err) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
}

func TestDynamoStore_Generations(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	s := newDynamoStore(fake, "redo", 3)

	for _, id := range []string{"g1", "g2", "g3"} {
		err := s.PutGeneration(ctx, &Generation{
			ID: id, UserID: "u1", Mode: "CITY", Filters: []string{"remove_trash"}, Result: "success", Cost: 1,
		})
		if err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	if err := s.PutGeneration(ctx, &Generation{ID: "other", UserID: "u2", Result: "success"}); err != nil {
		t.Fatal(err)
	}

	for _, item := range fake.items {
		if strings.HasPrefix(str(item["SK"]), skGeneration) && item["expiresAt"] == nil {
			t.Error("generation records must carry expiresAt")
		}
	}

	gens, err := s.ListGenerations(ctx, "u1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 2 {
		t.Fatalf("expected 2 generations, got %d", len(gens))
	}
	if gens[0].ID != "g3" || gens[1].ID != "g2" {
		t.Errorf("expected newest first, got %s, %s", gens[0].ID, gens[1].ID)
	}
	if gens[0].UserID != "u1" || gens[0].CreatedAt == 0 {
		t.Errorf("unexpected record %+v", gens[0])
	}
}

func TestGenerationSKSortsByTime(t *testing.T) {
	a := generationSK(time.Unix(1, 0), "z")
	b := generationSK(time.Unix(10, 0), "a")
	if !(a < b) {
		t.Errorf("expected %q < %q", a, b)
	}
}
