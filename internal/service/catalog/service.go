package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/vovakirdan/dsolution-crm/internal/store"
)

// Defaults is the catalog a fresh installation starts with.
var Defaults = []store.Service{
	// Students
	{Name: "Internship report crafting", Description: "Polished. Professional. Personalized. Turn your real-world training into a professionally written document that meets academic or industry standards."},
	{Name: "Proofreading & Editing", Description: "We check your grammar, fix sentence structure, and format your work according to academic guidelines."},
	{Name: "CV & Cover Letter Assistance", Description: "Let us write or enhance your documents to help you stand out for scholarships, internships, and job opportunities."},
	{Name: "Application Form Support", Description: "Guidance through online university or scholarship applications, including uploading documents and filling forms correctly."},
	{Name: "Assignment & Report Formatting", Description: "We'll format your documents to look clean, professional, and well-organized."},
	{Name: "Presentation Design Support", Description: "Polishing and structuring your PowerPoint slides to make them impactful and professional."},
	// Professionals
	{Name: "Professional CV Design", Description: "Clean, modern CVs that highlight your skills and experience in a visually appealing format."},
	{Name: "Custom Cover Letter Writing", Description: "Personalized cover letters tailored to your target job or role."},
	{Name: "Document Digitization & Formatting", Description: "Turn handwritten or scanned documents into editable, formatted digital files."},
	{Name: "Email Signature & Profile Assets", Description: "Add a professional touch to your emails with branded digital signatures and banners."},
	// Business owners
	{Name: "Business Website Setup", Description: "A simple, clean website with mobile compatibility, contact forms, service lists, and more."},
	{Name: "Social Media Page Creation", Description: "We create or upgrade your Facebook, Instagram, or LinkedIn pages with branded visuals and key info."},
	{Name: "Google Business Profile Setup", Description: "Show up in Google search results and on Google Maps with a verified business profile."},
	{Name: "Logo & Branding Design", Description: "Unique logos, social banners, and business card designs to give your business a consistent identity."},
	{Name: "Invoice & Quote Templates", Description: "Professionally designed templates branded with your logo and business info."},
	{Name: "Business Email Setup", Description: "Set up custom emails using your domain (like info@yourbusiness.com) via Gmail or Zoho."},
	{Name: "Online Store Setup", Description: "Start selling online with basic storefronts on Selar, Paystack, or Gumroad. Great for physical or digital products."},
	{Name: "Form & Survey Creation", Description: "Need to collect customer info or feedback? We'll build custom forms using Google Forms or Typeform."},
}

// Service exposes the service catalog.
type Service struct {
	store store.ServiceStore
	// seedMu serializes the empty-check and insert of the default catalog.
	seedMu sync.Mutex
}

// New creates a catalog service.
func New(st store.ServiceStore) *Service {
	return &Service{store: st}
}

// List returns the catalog, inserting Defaults first when it is empty.
func (s *Service) List(ctx context.Context) ([]*store.Service, error) {
	services, err := s.store.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if len(services) > 0 {
		return services, nil
	}

	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	services, err = s.store.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if len(services) > 0 {
		return services, nil
	}

	created, err := s.store.CreateServices(ctx, Defaults)
	if err != nil {
		return nil, fmt.Errorf("seed services: %w", err)
	}
	return created, nil
}

// Get returns one catalog entry.
func (s *Service) Get(ctx context.Context, id string) (*store.Service, error) {
	return s.store.GetService(ctx, id)
}
