package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain"
)

const (
	ordersCollection  = "orders"
	contentCollection = "siteContent"
	bannersDocID      = "banners"
)

// Connect подключается к MongoDB и проверяет соединение ping-ом
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

type orderItemDoc struct {
	ProductID string               `bson:"id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int64                `bson:"quantity"`
	Image     string               `bson:"image,omitempty"`
}

type orderDoc struct {
	ID              string                 `bson:"_id"`
	UserID          string                 `bson:"userId"`
	Items           []orderItemDoc         `bson:"items"`
	Total           primitive.Decimal128   `bson:"total"`
	Status          string                 `bson:"status"`
	ShippingAddress domain.ShippingAddress `bson:"shippingAddress"`
	PaymentDetails  domain.PaymentDetails  `bson:"paymentDetails"`
	OTP             *string                `bson:"otp"`
	CryptoTrxID     *string                `bson:"cryptoTrxId"`
	CreatedAt       time.Time              `bson:"createdAt"`
	UpdatedAt       time.Time              `bson:"updatedAt"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("decimal %s to Decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("Decimal128 %s to decimal: %w", v, err)
	}
	return d, nil
}

func toOrderDoc(o domain.Order) (orderDoc, error) {
	items := make([]orderItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return orderDoc{}, fmt.Errorf("item %s price: %w", it.ProductID, err)
		}
		items = append(items, orderItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	total, err := toDecimal128(o.Total)
	if err != nil {
		return orderDoc{}, fmt.Errorf("order total: %w", err)
	}
	return orderDoc{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		Total:           total,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		PaymentDetails:  o.PaymentDetails,
		OTP:             o.OTP,
		CryptoTrxID:     o.CryptoTrxID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}, nil
}

func (d orderDoc) order() (domain.Order, error) {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %s item %s price: %w", d.ID, it.ProductID, err)
		}
		items = append(items, domain.CartItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	total, err := fromDecimal128(d.Total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s total: %w", d.ID, err)
	}
	return domain.Order{
		ID:              d.ID,
		UserID:          d.UserID,
		Items:           items,
		Total:           total,
		Status:          domain.OrderStatus(d.Status),
		ShippingAddress: d.ShippingAddress,
		PaymentDetails:  d.PaymentDetails,
		OTP:             d.OTP,
		CryptoTrxID:     d.CryptoTrxID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

// MongoOrders реализация OrderRepository поверх коллекции orders
type MongoOrders struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoOrders(db *mongo.Database) *MongoOrders {
	return &MongoOrders{
		coll: db.Collection(ordersCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ OrderRepository = (*MongoOrders)(nil)

func (r *MongoOrders) Create(ctx context.Context, o *domain.Order) error {
	o.ID = uuid.NewString()
	o.CreatedAt = r.now()
	o.UpdatedAt = o.CreatedAt
	doc, err := toOrderDoc(*o)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *MongoOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var doc orderDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	o, err := doc.order()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MongoOrders) Update(ctx context.Context, o *domain.Order) error {
	o.UpdatedAt = r.now()
	doc, err := toOrderDoc(*o)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": o.ID}, doc)
	if err != nil {
		return fmt.Errorf("replace order: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrders) SetVerification(ctx context.Context, id string, v domain.Verification) error {
	set := bson.M{"updatedAt": r.now()}
	if v.OTP != nil {
		set["otp"] = *v.OTP
	}
	if v.CryptoTrxID != nil {
		set["cryptoTrxId"] = *v.CryptoTrxID
	}
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update order verification: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrders) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Order, 0)
	for cur.Next(ctx) {
		var doc orderDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		o, err := doc.order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, cur.Err()
}

// EnsureIndexes индексы для выборок дашборда и админки
func (r *MongoOrders) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

type bannerDoc struct {
	ID        string    `bson:"_id"`
	Main      string    `bson:"main"`
	Sub1      string    `bson:"sub1"`
	Sub2      string    `bson:"sub2"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoBanners документ siteContent/banners
type MongoBanners struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoBanners(db *mongo.Database) *MongoBanners {
	return &MongoBanners{
		coll: db.Collection(contentCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ BannerRepository = (*MongoBanners)(nil)

func (r *MongoBanners) Get(ctx context.Context) (*domain.BannerSet, error) {
	var doc bannerDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": bannersDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find banners: %w", err)
	}
	return &domain.BannerSet{Main: doc.Main, Sub1: doc.Sub1, Sub2: doc.Sub2, UpdatedAt: doc.UpdatedAt}, nil
}

func (r *MongoBanners) Save(ctx context.Context, b domain.BannerSet) error {
	doc := bannerDoc{ID: bannersDocID, Main: b.Main, Sub1: b.Sub1, Sub2: b.Sub2, UpdatedAt: r.now()}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": bannersDocID}, doc, opts); err != nil {
		return fmt.Errorf("save banners: %w", err)
	}
	return nil
}

// MongoTx транзакция через клиентскую сессию. Требует replica set.
type MongoTx struct{ client *mongo.Client }

func NewMongoTx(client *mongo.Client) *MongoTx { return &MongoTx{client: client} }

var _ TxManager = (*MongoTx)(nil)

func (tx *MongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := tx.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
