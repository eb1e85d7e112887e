package main

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"posservice/pkg/common/domain"
	appservice "posservice/pkg/sale/application/service"
	"posservice/pkg/sale/domain/model"
	domainservice "posservice/pkg/sale/domain/service"
	"posservice/pkg/sale/infrastructure/event"
	"posservice/pkg/sale/infrastructure/memory"
	"posservice/pkg/sale/infrastructure/metrics"
	"posservice/pkg/sale/infrastructure/mysql"
	"posservice/pkg/sale/infrastructure/transport"
)

type storage struct {
	uow         model.UnitOfWork
	products    model.ProductRepository
	ledger      model.SaleLedger
	storeConfig model.StoreConfigRepository
	health      transport.HealthCheck
}

type container struct {
	router  http.Handler
	closers []func() error
}

func (c *container) Close(logger logrus.FieldLogger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.WithError(err).Error("failed to release resource")
		}
	}
}

func newContainer(ctx context.Context, c *config, logger *logrus.Logger) (*container, error) {
	policy, err := domainservice.ParseNegativeTotalPolicy(c.NegativeTotalPolicy)
	if err != nil {
		return nil, err
	}

	cont := &container{}
	store, err := newStorage(ctx, c, cont)
	if err != nil {
		cont.Close(logger)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	serverMetrics := metrics.NewServerMetrics(registry)
	salesMetrics := metrics.NewSalesMetrics(registry)

	dispatchers := []domain.EventDispatcher{event.NewLogDispatcher(logger), salesMetrics.Dispatcher()}
	if brokers := event.ParseBrokers(c.KafkaBrokers); len(brokers) > 0 {
		writer := event.NewKafkaWriter(brokers, c.KafkaTopic)
		cont.closers = append(cont.closers, writer.Close)
		dispatchers = append(dispatchers, event.NewKafkaDispatcher(writer))
		logger.WithField("topic", c.KafkaTopic).Info("publishing events to kafka")
	}
	dispatcher := event.NewMultiDispatcher(dispatchers...)

	storeConfigService := domainservice.NewStoreConfigService(store.storeConfig, dispatcher)
	productService := domainservice.NewProductService(store.products, dispatcher)
	checkoutService := domainservice.NewCheckoutService(store.uow, policy, logger)
	salesService := appservice.NewSalesService(checkoutService, storeConfigService, store.ledger, dispatcher, logger)

	handler := transport.NewHandler(salesService, productService, storeConfigService, store.health, logger)
	cont.router = transport.Router(handler, serverMetrics, metrics.Handler(registry))
	return cont, nil
}

func newStorage(ctx context.Context, c *config, cont *container) (*storage, error) {
	switch c.Storage {
	case storageMemory:
		store := memory.NewStore()
		return &storage{
			uow:         store.UnitOfWork(),
			products:    store.ProductRepository(),
			ledger:      store.SaleLedger(),
			storeConfig: store.StoreConfigRepository(),
		}, nil
	case storageMySQL:
		db, err := mysql.Open(ctx, c.dsn(), mysql.ConnectionConfig{
			MaxConnections:  c.DBMaxConn,
			ConnMaxLifetime: c.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		cont.closers = append(cont.closers, db.Close)
		return &storage{
			uow:         mysql.NewUnitOfWork(db),
			products:    mysql.NewProductRepository(db),
			ledger:      mysql.NewSaleRepository(db),
			storeConfig: mysql.NewStoreConfigRepository(db),
			health:      db.PingContext,
		}, nil
	default:
		return nil, errors.Errorf("unknown storage %q", c.Storage)
	}
}
