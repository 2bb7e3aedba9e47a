// Package mongo はMongoDB上に store.Store を実装する。
//
// ユーザーは users コレクション、タスクは todo コレクションに保存する。
// タスクの識別子はObjectIDの16進文字列として外部に公開する。
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nao1215/tasklist/internal/store"
)

const (
	usersCollection = "users"
	tasksCollection = "todo"
)

// Store はMongoDBを使用するストア。
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	tasks  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// userDocument はusersコレクションのドキュメント構造。
type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
}

// Open はMongoDBに接続し、emailの一意インデックスを作成する。
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("MongoDB接続に失敗: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("MongoDBへの疎通に失敗: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client: client,
		users:  db.Collection(usersCollection),
		tasks:  db.Collection(tasksCollection),
	}

	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("emailインデックスの作成に失敗: %w", err)
	}

	return s, nil
}

// Ping はMongoDBへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close は接続を切断する。
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FindUserByEmail はメールアドレスでユーザーを検索する。
func (s *Store) FindUserByEmail(ctx context.Context, email string) (store.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("ユーザー取得に失敗: %w", err)
	}
	return store.User{Email: doc.Email, PasswordHash: doc.PasswordHash}, nil
}

// InsertUser はユーザーを登録する。
func (s *Store) InsertUser(ctx context.Context, user store.User) error {
	_, err := s.users.InsertOne(ctx, userDocument{Email: user.Email, PasswordHash: user.PasswordHash})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("ユーザー登録に失敗: %w", err)
	}
	return nil
}

// InsertTask はタスクを追加し、ObjectIDの16進文字列を返す。
func (s *Store) InsertTask(ctx context.Context, task store.Task) (string, error) {
	res, err := s.tasks.InsertOne(ctx, bson.M(task.WithoutID()))
	if err != nil {
		return "", fmt.Errorf("タスク追加に失敗: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("想定外の識別子の型: %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// ListTasks はすべてのタスクを追加順に返す。
func (s *Store) ListTasks(ctx context.Context) ([]store.Task, error) {
	cur, err := s.tasks.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗: %w", err)
	}

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("タスク一覧の読み取りに失敗: %w", err)
	}

	tasks := make([]store.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, toTask(doc))
	}
	return tasks, nil
}

// GetTask は識別子でタスクを取得する。
func (s *Store) GetTask(ctx context.Context, id string) (store.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}

	var doc bson.M
	err = s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("タスク取得に失敗: %w", err)
	}
	return toTask(doc), nil
}

// UpdateTask は$setで指定したフィールドのみを上書きする。
func (s *Store) UpdateTask(ctx context.Context, id string, fields store.Task) (store.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.UpdateResult{}, nil
	}

	set := fields.WithoutID()
	if len(set) == 0 {
		// 空の$setはサーバーに拒否されるため一致件数のみ返す
		n, err := s.tasks.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return store.UpdateResult{}, fmt.Errorf("タスク件数の取得に失敗: %w", err)
		}
		return store.UpdateResult{MatchedCount: n}, nil
	}

	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M(set)})
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("タスク更新に失敗: %w", err)
	}
	return store.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

// DeleteTask はタスクを1件削除する。
func (s *Store) DeleteTask(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("タスク削除に失敗: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteTasks は識別子の集合に一致するタスクを削除する。不正な形式の識別子は無視する。
func (s *Store) DeleteTasks(ctx context.Context, ids []string) (int64, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return 0, nil
	}

	res, err := s.tasks.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("タスク一括削除に失敗: %w", err)
	}
	return res.DeletedCount, nil
}

// toTask はドキュメントをタスクに変換し、ObjectIDを16進文字列にする。
func toTask(doc bson.M) store.Task {
	task := store.Task(doc)
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		task[store.IDField] = oid.Hex()
	}
	return task
}
