package repository

import (
	"context"
	"time"

	"quizmaster/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ResultRepository struct {
	Col *mongo.Collection
}

func NewResultRepository(db *mongo.Database) *ResultRepository {
	return &ResultRepository{Col: db.Collection("results")}
}

// Create inserts a finalized attempt and writes the assigned ID back into it.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
	doc := bson.M{
		"username":  result.Username,
		"branch":    result.Branch,
		"subject":   result.Subject,
		"answers":   result.Answers,
		"score":     result.Score,
		"total":     result.Total,
		"timeTaken": result.TimeTaken,
		"createdAt": result.CreatedAt,
	}
	res, err := r.Col.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		result.ID = oid.Hex()
	}
	return nil
}

func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var result models.Result
	if err := r.Col.FindOne(ctx, bson.M{"_id": objID}).Decode(&result); err != nil {
		return nil, err
	}
	result.ID = id
	return &result, nil
}

// FindByUser returns a user's attempts, newest first.
func (r *ResultRepository) FindByUser(ctx context.Context, username string) ([]models.Result, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cur, err := r.Col.Find(ctx, bson.M{"username": username}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var results []models.Result
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteByUser bulk-clears a user's history and returns how many attempts
// were removed.
func (r *ResultRepository) DeleteByUser(ctx context.Context, username string) (int64, error) {
	res, err := r.Col.DeleteMany(ctx, bson.M{"username": username})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Leaderboard aggregates each user's best score (and fastest time) per
// branch/subject, sorted by score descending then time ascending, or the
// inverse when byTime is set. Empty branch or subject leaves that dimension
// unfiltered.
func (r *ResultRepository) Leaderboard(ctx context.Context, branch, subject string, byTime bool) ([]models.LeaderboardEntry, error) {
	match := bson.M{}
	if branch != "" {
		match["branch"] = branch
	}
	if subject != "" {
		match["subject"] = subject
	}

	sort := bson.D{
		{Key: "maxScore", Value: -1},
		{Key: "timeTaken", Value: 1},
	}
	if byTime {
		sort = bson.D{
			{Key: "timeTaken", Value: 1},
			{Key: "maxScore", Value: -1},
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"username": "$username",
				"branch":   "$branch",
				"subject":  "$subject",
			},
			"maxScore": bson.M{"$max": "$score"},
			"minTime":  bson.M{"$min": "$timeTaken"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":       0,
			"username":  "$_id.username",
			"branch":    "$_id.branch",
			"subject":   "$_id.subject",
			"maxScore":  1,
			"timeTaken": "$minTime",
		}}},
		{{Key: "$sort", Value: sort}},
	}

	cur, err := r.Col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var entries []models.LeaderboardEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
