package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/jpcardenasg/automatcher/client"
	"github.com/jpcardenasg/automatcher/config"
	"github.com/jpcardenasg/automatcher/handler"
	"github.com/jpcardenasg/automatcher/service"
)

func main() {
	cfg := config.Load()

	fs := ff.NewFlagSet("automatcher")
	var (
		pdfPath   = fs.StringLong("pdf", "", "Path to the soportes PDF")
		excelPath = fs.StringLong("excel", "", "Path to the TB spreadsheet (.xlsx)")
		outputDir = fs.StringLong("out", "output", "Output directory for soportes and PDFs")
		margin    = fs.Float64Long("margin", cfg.Margin, "Matching tolerance in currency units")
		threshold = fs.Float64Long("threshold", cfg.ContentThreshold, "Near-white fraction above which a soporte is dropped (0-1)")
		language  = fs.StringLong("lang", cfg.OCRLanguage, "Tesseract language tag")
		tessdata  = fs.StringLong("tessdata", cfg.TesseractDataPath, "Tesseract tessdata prefix")
		serve     = fs.BoolLong("serve", "Run the HTTP API instead of a one-shot pipeline run")
		port      = fs.StringLong("port", cfg.ServerPort, "HTTP server port (with --serve)")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("AUTOMATCHER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	tesseractClient := client.NewTesseractClient(*tessdata, *language)
	rasterizer := client.NewFitzRasterizer()

	extractor := service.NewExtractor(func(path string) (service.RasterDocument, error) {
		return rasterizer.Open(path)
	})
	ocrEngine := service.NewOCREngine(tesseractClient)
	matcher := service.NewMatcher(ocrEngine)
	generator := service.NewPDFGenerator()
	pipeline := service.NewPipeline(extractor, matcher, generator)

	if *serve {
		runServer(pipeline, *port)
		return
	}

	if *pdfPath == "" || *excelPath == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --pdf and --excel are required")
		os.Exit(1)
	}

	records, summary, err := pipeline.Run(service.RunParams{
		PDFPath:          *pdfPath,
		ExcelPath:        *excelPath,
		OutputDir:        *outputDir,
		Margin:           decimal.NewFromFloat(*margin),
		ContentThreshold: *threshold,
	})
	for _, record := range records {
		tbIndex := "-"
		if record.Row != nil {
			tbIndex = fmt.Sprintf("%d", record.Row.Index)
		}
		log.Info("soporte result",
			"soporte", record.Receipt.Path,
			"estado", record.Status,
			"valor", record.Value,
			"tb", tbIndex)
	}
	if err != nil {
		log.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	log.Info("matching completed",
		"extracted", summary.Extracted,
		"accepted", summary.Accepted,
		"matched", summary.Matched,
		"rendered", summary.Rendered)
}

func runServer(pipeline *service.Pipeline, port string) {
	matchHandler := handler.NewMatchHandler(pipeline)

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "AutoMatcher",
		})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/match", matchHandler.RunMatch)
	}

	log.Info("starting AutoMatcher API", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
