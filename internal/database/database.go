package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/data"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	storiesCollection  = "stories"
	chaptersCollection = "chapters"
	commentsCollection = "comments"
)

// Mongo is the MongoDB-backed Store.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*Mongo)(nil)

// New connects to uri, verifies the connection and makes sure the indexes exist.
func New(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(dbName)}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging mongo: %w", err)
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		storiesCollection: {
			{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "publishedAt", Value: -1}}},
		},
		chaptersCollection: {
			{Keys: bson.D{{Key: "storyId", Value: 1}, {Key: "order", Value: 1}}},
		},
		commentsCollection: {
			{Keys: bson.D{{Key: "storyId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("error creating %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (m *Mongo) stories() *mongo.Collection  { return m.db.Collection(storiesCollection) }
func (m *Mongo) chapters() *mongo.Collection { return m.db.Collection(chaptersCollection) }
func (m *Mongo) comments() *mongo.Collection { return m.db.Collection(commentsCollection) }

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// publicationSet builds the $set document for t: the flag plus the stamp
// pair of its direction only.
func publicationSet(t data.Transition) bson.M {
	set := bson.M{"published": t.Published, "updatedAt": t.At}
	if t.Published {
		set["publishedAt"] = t.At
		set["publishedBy"] = t.By
	} else {
		set["unPublishedAt"] = t.At
		set["unPublishedBy"] = t.By
	}
	return set
}

func (m *Mongo) InsertStory(ctx context.Context, story *data.Story) error {
	if story.Bravos == nil {
		story.Bravos = []string{}
	}
	res, err := m.stories().InsertOne(ctx, story)
	if err != nil {
		return fmt.Errorf("error inserting story: %w", err)
	}
	story.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) FindStory(ctx context.Context, id primitive.ObjectID) (*data.Story, error) {
	var story data.Story
	err := m.stories().FindOne(ctx, bson.M{"_id": id}).Decode(&story)
	if err != nil {
		return nil, notFound(err)
	}
	return &story, nil
}

func (m *Mongo) ListStories(ctx context.Context, filter data.StoryFilter) ([]data.Story, error) {
	page := filter.Page.Normalize()
	query := bson.M{}
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	if filter.AuthorID != "" {
		query["authorId"] = filter.AuthorID
	}
	if filter.PublishedOnly {
		query["published"] = true
		sort = bson.D{{Key: "publishedAt", Value: -1}, {Key: "_id", Value: -1}}
	}

	findOptions := options.Find().SetSort(sort).SetSkip(page.Skip()).SetLimit(int64(page.Limit))
	cursor, err := m.stories().Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("error fetching stories: %w", err)
	}
	defer cursor.Close(ctx)

	stories := []data.Story{}
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, fmt.Errorf("error decoding stories: %w", err)
	}
	return stories, nil
}

func (m *Mongo) UpdateStory(ctx context.Context, id primitive.ObjectID, changes data.StoryChanges, now time.Time) (*data.Story, error) {
	set := bson.M{"updatedAt": now}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	return m.updateStory(ctx, id, bson.M{"$set": set})
}

func (m *Mongo) SetStoryPublication(ctx context.Context, id primitive.ObjectID, t data.Transition) (*data.Story, error) {
	return m.updateStory(ctx, id, bson.M{"$set": publicationSet(t)})
}

func (m *Mongo) SetStoryCover(ctx context.Context, id primitive.ObjectID, key, url string, now time.Time) (*data.Story, error) {
	return m.updateStory(ctx, id, bson.M{"$set": bson.M{"coverKey": key, "coverUrl": url, "updatedAt": now}})
}

func (m *Mongo) AddBravo(ctx context.Context, id primitive.ObjectID, userID string) (*data.Story, error) {
	return m.updateStory(ctx, id, bson.M{"$addToSet": bson.M{"bravos": userID}})
}

func (m *Mongo) RemoveBravo(ctx context.Context, id primitive.ObjectID, userID string) (*data.Story, error) {
	return m.updateStory(ctx, id, bson.M{"$pull": bson.M{"bravos": userID}})
}

func (m *Mongo) updateStory(ctx context.Context, id primitive.ObjectID, update bson.M) (*data.Story, error) {
	var story data.Story
	err := m.stories().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&story)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error updating story %s: %w", id.Hex(), err)
	}
	return &story, nil
}

func (m *Mongo) AdjustChapterCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	// Pipeline update so the floor at zero is applied in the same write.
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$chapterCount", 0}}}
	next := bson.D{{Key: "$add", Value: bson.A{current, delta}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "chapterCount", Value: bson.D{{Key: "$max", Value: bson.A{0, next}}}}}}},
	}
	res, err := m.stories().UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("error adjusting chapter count of %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) SetChapterCount(ctx context.Context, id primitive.ObjectID, expected, count int) (bool, error) {
	filter := bson.M{"_id": id, "chapterCount": expected}
	if expected == 0 {
		// Documents written before the counter existed have no field at all.
		filter["chapterCount"] = bson.M{"$in": bson.A{0, nil}}
	}
	res, err := m.stories().UpdateOne(ctx, filter, bson.M{"$set": bson.M{"chapterCount": count}})
	if err != nil {
		return false, fmt.Errorf("error setting chapter count of %s: %w", id.Hex(), err)
	}
	return res.MatchedCount == 1, nil
}

func (m *Mongo) DeleteStory(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.stories().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting story %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) StoryIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	return m.distinctIDs(ctx, m.stories(), "_id")
}

func (m *Mongo) InsertChapter(ctx context.Context, chapter *data.Chapter) error {
	res, err := m.chapters().InsertOne(ctx, chapter)
	if err != nil {
		return fmt.Errorf("error inserting chapter: %w", err)
	}
	chapter.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) FindChapter(ctx context.Context, id primitive.ObjectID) (*data.Chapter, error) {
	var chapter data.Chapter
	err := m.chapters().FindOne(ctx, bson.M{"_id": id}).Decode(&chapter)
	if err != nil {
		return nil, notFound(err)
	}
	return &chapter, nil
}

func (m *Mongo) ListChapters(ctx context.Context, storyID primitive.ObjectID, publishedOnly bool) ([]data.Chapter, error) {
	query := bson.M{"storyId": storyID}
	if publishedOnly {
		query["published"] = true
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: 1}})

	cursor, err := m.chapters().Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("error fetching chapters: %w", err)
	}
	defer cursor.Close(ctx)

	chapters := []data.Chapter{}
	if err := cursor.All(ctx, &chapters); err != nil {
		return nil, fmt.Errorf("error decoding chapters: %w", err)
	}
	return chapters, nil
}

func (m *Mongo) UpdateChapter(ctx context.Context, id primitive.ObjectID, changes data.ChapterChanges, now time.Time) (*data.Chapter, error) {
	set := bson.M{"updatedAt": now}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Content != nil {
		set["content"] = *changes.Content
	}
	if changes.Order != nil {
		set["order"] = *changes.Order
	}
	return m.updateChapter(ctx, id, bson.M{"$set": set})
}

func (m *Mongo) SetChapterPublication(ctx context.Context, id primitive.ObjectID, t data.Transition) (*data.Chapter, error) {
	return m.updateChapter(ctx, id, bson.M{"$set": publicationSet(t)})
}

func (m *Mongo) updateChapter(ctx context.Context, id primitive.ObjectID, update bson.M) (*data.Chapter, error) {
	var chapter data.Chapter
	err := m.chapters().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&chapter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error updating chapter %s: %w", id.Hex(), err)
	}
	return &chapter, nil
}

func (m *Mongo) DeleteChapter(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.chapters().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting chapter %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteChaptersByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error) {
	res, err := m.chapters().DeleteMany(ctx, bson.M{"storyId": storyID})
	if err != nil {
		return 0, fmt.Errorf("error deleting chapters of %s: %w", storyID.Hex(), err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) CountChapters(ctx context.Context, storyID primitive.ObjectID) (int64, error) {
	n, err := m.chapters().CountDocuments(ctx, bson.M{"storyId": storyID})
	if err != nil {
		return 0, fmt.Errorf("error counting chapters of %s: %w", storyID.Hex(), err)
	}
	return n, nil
}

func (m *Mongo) ChapterStoryIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	return m.distinctIDs(ctx, m.chapters(), "storyId")
}

func (m *Mongo) InsertComment(ctx context.Context, comment *data.Comment) error {
	res, err := m.comments().InsertOne(ctx, comment)
	if err != nil {
		return fmt.Errorf("error inserting comment: %w", err)
	}
	comment.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) FindComment(ctx context.Context, id primitive.ObjectID) (*data.Comment, error) {
	var comment data.Comment
	err := m.comments().FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

func (m *Mongo) ListComments(ctx context.Context, storyID primitive.ObjectID, page data.Page) ([]data.Comment, error) {
	page = page.Normalize()
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	cursor, err := m.comments().Find(ctx, bson.M{"storyId": storyID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("error fetching comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []data.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("error decoding comments: %w", err)
	}
	return comments, nil
}

func (m *Mongo) DeleteComment(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.comments().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting comment %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteCommentsByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error) {
	res, err := m.comments().DeleteMany(ctx, bson.M{"storyId": storyID})
	if err != nil {
		return 0, fmt.Errorf("error deleting comments of %s: %w", storyID.Hex(), err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) CommentStoryIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	return m.distinctIDs(ctx, m.comments(), "storyId")
}

func (m *Mongo) distinctIDs(ctx context.Context, coll *mongo.Collection, field string) ([]primitive.ObjectID, error) {
	values, err := coll.Distinct(ctx, field, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error listing distinct %s.%s: %w", coll.Name(), field, err)
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Mongo) Health(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	err := m.client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db down: %w", err)
	}

	return map[string]string{"message": "It's healthy"}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
