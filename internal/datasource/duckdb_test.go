package datasource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/datasource"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/mocks"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBSourceTestSuite struct {
	suite.Suite
	dir    string
	source *datasource.DuckDBSource
}

func TestDuckDBSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBSourceTestSuite))
}

func (s *DuckDBSourceTestSuite) SetupTest() {
	s.dir = s.T().TempDir()

	source, err := datasource.NewDuckDBSource(s.dir, logger.NewNop())
	s.Require().NoError(err)

	s.source = source
}

func (s *DuckDBSourceTestSuite) TearDownTest() {
	s.Require().NoError(s.source.Close())
}

func (s *DuckDBSourceTestSuite) TestFileName() {
	s.Equal("NSE_FO_NIFTY.csv", datasource.FileName("NSE_FO", "NIFTY"))
	s.Equal("NSE_M_M.csv", datasource.FileName("NSE", "M/M"))
}

func (s *DuckDBSourceTestSuite) TestGetRangeFiltersInclusive() {
	csv := "timestamp,open,high,low,close,volume\n" +
		"2024-01-01 09:15:00,100,101,99,100.5,1000\n" +
		"2024-01-02 09:15:00,100.5,106,100,105,1200\n" +
		"2024-01-03 09:15:00,105,112,104,111,1500\n" +
		"2024-01-04 09:15:00,111,113,110,112,900\n"
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "NSE_NIFTY.csv"), []byte(csv), 0644))

	start := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 9, 15, 0, 0, time.UTC)

	bars, err := s.source.GetRange(context.Background(), "NSE", "NIFTY", start, end)
	s.Require().NoError(err)
	s.Require().Len(bars, 2)

	s.Equal("NIFTY", bars[0].Symbol)
	s.True(bars[0].Time.Equal(start))
	s.Equal(105.0, bars[0].Close)
	s.Equal(111.0, bars[1].Close)
	s.Equal(1500.0, bars[1].Volume)
}

func (s *DuckDBSourceTestSuite) TestGetRangeNoData() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	s.Run("missing file", func() {
		_, err := s.source.GetRange(context.Background(), "NSE", "BANKNIFTY", start, end)
		s.True(errors.HasCode(err, errors.ErrCodeNoDataFound))
	})

	s.Run("empty range", func() {
		csv := "timestamp,open,high,low,close,volume\n2023-06-01 09:15:00,1,1,1,1,1\n"
		s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "NSE_SBIN.csv"), []byte(csv), 0644))

		_, err := s.source.GetRange(context.Background(), "NSE", "SBIN", start, end)
		s.True(errors.HasCode(err, errors.ErrCodeNoDataFound))
	})
}

func (s *DuckDBSourceTestSuite) TestSaveThenRead() {
	config := mocks.DefaultConfig()
	config.Count = 30
	generated := mocks.NewDataGenerator(3).Generate(config)

	s.Require().NoError(s.source.Save(context.Background(), "NSE", "NIFTY", generated))
	s.FileExists(filepath.Join(s.dir, "NSE_NIFTY.csv"))

	bars, err := s.source.GetRange(context.Background(), "NSE", "NIFTY",
		generated[0].Time, generated[len(generated)-1].Time)
	s.Require().NoError(err)
	s.Require().Len(bars, len(generated))

	for i := range bars {
		s.True(bars[i].Time.Equal(generated[i].Time))
		s.InDelta(generated[i].Close, bars[i].Close, 1e-9)
	}
}

func (s *DuckDBSourceTestSuite) TestSaveRejectsEmpty() {
	err := s.source.Save(context.Background(), "NSE", "NIFTY", nil)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientData))
}
