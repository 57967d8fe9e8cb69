package doctors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores one document per doctor with the calendar embedded
// as an array of slots.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository uses the doctors collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	if db == nil {
		panic("doctors: mongo database required")
	}
	return &MongoRepository{coll: db.Collection("doctors")}
}

func newMongoRepositoryWithCollection(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// EnsureIndexes creates the lookup indexes used by List.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "isAvailable", Value: 1}, {Key: "specialization", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("doctors: ensure indexes: %w", err)
	}
	return nil
}

// Create inserts the doctor document.
func (r *MongoRepository) Create(ctx context.Context, doctor *Doctor) error {
	seen := make(map[slotKey]struct{}, len(doctor.Slots))
	for _, slot := range doctor.Slots {
		key := slotKey{date: slot.Date, time: slot.Time}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s %s", ErrDuplicateSlot, slot.Date, slot.Time)
		}
		seen[key] = struct{}{}
	}
	if _, err := r.coll.InsertOne(ctx, doctor); err != nil {
		return fmt.Errorf("doctors: insert doctor: %w", err)
	}
	return nil
}

// Get loads the doctor document including its calendar.
func (r *MongoRepository) Get(ctx context.Context, id string) (*Doctor, error) {
	var doctor Doctor
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doctor); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: find doctor: %w", err)
	}
	if doctor.Slots == nil {
		doctor.Slots = []Slot{}
	}
	return &doctor, nil
}

// List returns available doctors matching filter, without slots.
func (r *MongoRepository) List(ctx context.Context, filter ListFilter) ([]*Doctor, error) {
	query := bson.M{"isAvailable": true}
	if terms := filter.SearchTerms(); len(terms) > 0 {
		clauses := make(bson.A, 0, len(terms))
		for _, term := range terms {
			clauses = append(clauses, bson.M{"name": bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}})
		}
		query["$and"] = clauses
	} else if spec := strings.TrimSpace(filter.Specialization); spec != "" {
		query["specialization"] = spec
	}

	opts := options.Find().
		SetProjection(bson.M{"slots": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("doctors: find doctors: %w", err)
	}
	defer cursor.Close(ctx)

	out := []*Doctor{}
	for cursor.Next(ctx) {
		var doctor Doctor
		if err := cursor.Decode(&doctor); err != nil {
			return nil, fmt.Errorf("doctors: decode doctor: %w", err)
		}
		doctor.Slots = nil
		out = append(out, &doctor)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("doctors: iterate doctors: %w", err)
	}
	return out, nil
}

// Specializations returns the sorted distinct specializations of all doctors.
func (r *MongoRepository) Specializations(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "specialization", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("doctors: distinct specializations: %w", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if spec, ok := v.(string); ok {
			out = append(out, spec)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Count returns the number of stored doctors.
func (r *MongoRepository) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("doctors: count: %w", err)
	}
	return int(n), nil
}

// ClaimSlot flips the first unbooked slot matching (date, time) in a single
// document update, so concurrent claims cannot both succeed.
func (r *MongoRepository) ClaimSlot(ctx context.Context, doctorID, date, slotTime string) error {
	filter := bson.M{
		"_id": doctorID,
		"slots": bson.M{"$elemMatch": bson.M{
			"date":     date,
			"time":     slotTime,
			"isBooked": false,
		}},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"slots.$.isBooked": true}})
	if err != nil {
		return fmt.Errorf("doctors: claim slot: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// ReleaseSlot unbooks every embedded slot matching (date, time).
func (r *MongoRepository) ReleaseSlot(ctx context.Context, doctorID, date, slotTime string) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"s.date": date, "s.time": slotTime}},
	})
	if _, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": doctorID},
		bson.M{"$set": bson.M{"slots.$[s].isBooked": false}},
		opts,
	); err != nil {
		return fmt.Errorf("doctors: release slot: %w", err)
	}
	return nil
}
