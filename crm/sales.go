/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package crm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/crmjunction/repository"
	"github.com/tomoncle/crmjunction/resilience"
	"github.com/uptrace/bun"
)

var personInvoiceMapping = repository.Mapping[PersonInvoice, uuid.UUID, uuid.UUID]{
	Table:        "person_invoices",
	FirstColumn:  "person_id",
	SecondColumn: "invoice_id",
	New: func(personID, invoiceID uuid.UUID, now time.Time) *PersonInvoice {
		return &PersonInvoice{PersonID: personID, InvoiceID: invoiceID, LinkState: repository.NewLinkState(now)}
	},
}

// PersonInvoiceRepository links people to the invoices billed to them.
type PersonInvoiceRepository struct {
	*repository.Junction[PersonInvoice, uuid.UUID, uuid.UUID]
}

func NewPersonInvoiceRepository(db bun.IDB, exec *resilience.Executor) (*PersonInvoiceRepository, error) {
	j, err := repository.NewJunction(db, exec, personInvoiceMapping)
	if err != nil {
		return nil, err
	}
	return &PersonInvoiceRepository{j}, nil
}

func (r *PersonInvoiceRepository) WithTx(db bun.IDB) *PersonInvoiceRepository {
	return &PersonInvoiceRepository{r.Junction.WithTx(db)}
}

func (r *PersonInvoiceRepository) InvoicesForPerson(ctx context.Context, personID uuid.UUID) ([]*PersonInvoice, error) {
	return r.GetByFirstID(ctx, personID)
}

func (r *PersonInvoiceRepository) PeopleForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*PersonInvoice, error) {
	return r.GetBySecondID(ctx, invoiceID)
}

func (r *PersonInvoiceRepository) GetPersonInvoice(ctx context.Context, personID, invoiceID uuid.UUID) (*PersonInvoice, error) {
	return r.GetByID(ctx, personID, invoiceID)
}

func (r *PersonInvoiceRepository) HasInvoice(ctx context.Context, personID, invoiceID uuid.UUID) (bool, error) {
	return r.Exists(ctx, personID, invoiceID)
}

func (r *PersonInvoiceRepository) AddInvoiceToPerson(ctx context.Context, personID, invoiceID uuid.UUID) (*PersonInvoice, error) {
	return r.Add(ctx, personID, invoiceID)
}

func (r *PersonInvoiceRepository) RemoveInvoiceFromPerson(ctx context.Context, personID, invoiceID uuid.UUID) (bool, error) {
	return r.Delete(ctx, personID, invoiceID)
}

var opportunityProductMapping = repository.Mapping[OpportunityProduct, uuid.UUID, int64]{
	Table:        "opportunity_products",
	FirstColumn:  "opportunity_id",
	SecondColumn: "product_id",
	New: func(opportunityID uuid.UUID, productID int64, now time.Time) *OpportunityProduct {
		return &OpportunityProduct{OpportunityID: opportunityID, ProductID: productID, LinkState: repository.NewLinkState(now)}
	},
}

type OpportunityProductRepository struct {
	*repository.Junction[OpportunityProduct, uuid.UUID, int64]
}

func NewOpportunityProductRepository(db bun.IDB, exec *resilience.Executor) (*OpportunityProductRepository, error) {
	j, err := repository.NewJunction(db, exec, opportunityProductMapping)
	if err != nil {
		return nil, err
	}
	return &OpportunityProductRepository{j}, nil
}

func (r *OpportunityProductRepository) WithTx(db bun.IDB) *OpportunityProductRepository {
	return &OpportunityProductRepository{r.Junction.WithTx(db)}
}

func (r *OpportunityProductRepository) ProductsForOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]*OpportunityProduct, error) {
	return r.GetByFirstID(ctx, opportunityID)
}

func (r *OpportunityProductRepository) OpportunitiesForProduct(ctx context.Context, productID int64) ([]*OpportunityProduct, error) {
	return r.GetBySecondID(ctx, productID)
}

func (r *OpportunityProductRepository) GetOpportunityProduct(ctx context.Context, opportunityID uuid.UUID, productID int64) (*OpportunityProduct, error) {
	return r.GetByID(ctx, opportunityID, productID)
}

func (r *OpportunityProductRepository) HasProduct(ctx context.Context, opportunityID uuid.UUID, productID int64) (bool, error) {
	return r.Exists(ctx, opportunityID, productID)
}

func (r *OpportunityProductRepository) AddProductToOpportunity(ctx context.Context, opportunityID uuid.UUID, productID int64) (*OpportunityProduct, error) {
	return r.Add(ctx, opportunityID, productID)
}

func (r *OpportunityProductRepository) RemoveProductFromOpportunity(ctx context.Context, opportunityID uuid.UUID, productID int64) (bool, error) {
	return r.Delete(ctx, opportunityID, productID)
}

var quoteProductMapping = repository.Mapping[QuoteProduct, uuid.UUID, int64]{
	Table:        "quote_products",
	FirstColumn:  "quote_id",
	SecondColumn: "product_id",
	New: func(quoteID uuid.UUID, productID int64, now time.Time) *QuoteProduct {
		return &QuoteProduct{QuoteID: quoteID, ProductID: productID, LinkState: repository.NewLinkState(now)}
	},
}

type QuoteProductRepository struct {
	*repository.Junction[QuoteProduct, uuid.UUID, int64]
}

func NewQuoteProductRepository(db bun.IDB, exec *resilience.Executor) (*QuoteProductRepository, error) {
	j, err := repository.NewJunction(db, exec, quoteProductMapping)
	if err != nil {
		return nil, err
	}
	return &QuoteProductRepository{j}, nil
}

func (r *QuoteProductRepository) WithTx(db bun.IDB) *QuoteProductRepository {
	return &QuoteProductRepository{r.Junction.WithTx(db)}
}

func (r *QuoteProductRepository) ProductsForQuote(ctx context.Context, quoteID uuid.UUID) ([]*QuoteProduct, error) {
	return r.GetByFirstID(ctx, quoteID)
}

func (r *QuoteProductRepository) QuotesForProduct(ctx context.Context, productID int64) ([]*QuoteProduct, error) {
	return r.GetBySecondID(ctx, productID)
}

func (r *QuoteProductRepository) GetQuoteProduct(ctx context.Context, quoteID uuid.UUID, productID int64) (*QuoteProduct, error) {
	return r.GetByID(ctx, quoteID, productID)
}

func (r *QuoteProductRepository) HasProduct(ctx context.Context, quoteID uuid.UUID, productID int64) (bool, error) {
	return r.Exists(ctx, quoteID, productID)
}

func (r *QuoteProductRepository) AddProductToQuote(ctx context.Context, quoteID uuid.UUID, productID int64) (*QuoteProduct, error) {
	return r.Add(ctx, quoteID, productID)
}

func (r *QuoteProductRepository) RemoveProductFromQuote(ctx context.Context, quoteID uuid.UUID, productID int64) (bool, error) {
	return r.Delete(ctx, quoteID, productID)
}

var dealContactMapping = repository.Mapping[DealContact, uuid.UUID, uuid.UUID]{
	Table:        "deal_contacts",
	FirstColumn:  "deal_id",
	SecondColumn: "contact_id",
	New: func(dealID, contactID uuid.UUID, now time.Time) *DealContact {
		return &DealContact{DealID: dealID, ContactID: contactID, LinkState: repository.NewLinkState(now)}
	},
}

// DealContactRepository links deals to their stakeholder contacts.
type DealContactRepository struct {
	*repository.Junction[DealContact, uuid.UUID, uuid.UUID]
}

func NewDealContactRepository(db bun.IDB, exec *resilience.Executor) (*DealContactRepository, error) {
	j, err := repository.NewJunction(db, exec, dealContactMapping)
	if err != nil {
		return nil, err
	}
	return &DealContactRepository{j}, nil
}

func (r *DealContactRepository) WithTx(db bun.IDB) *DealContactRepository {
	return &DealContactRepository{r.Junction.WithTx(db)}
}

func (r *DealContactRepository) ContactsForDeal(ctx context.Context, dealID uuid.UUID) ([]*DealContact, error) {
	return r.GetByFirstID(ctx, dealID)
}

func (r *DealContactRepository) DealsForContact(ctx context.Context, contactID uuid.UUID) ([]*DealContact, error) {
	return r.GetBySecondID(ctx, contactID)
}

func (r *DealContactRepository) GetDealContact(ctx context.Context, dealID, contactID uuid.UUID) (*DealContact, error) {
	return r.GetByID(ctx, dealID, contactID)
}

func (r *DealContactRepository) HasContact(ctx context.Context, dealID, contactID uuid.UUID) (bool, error) {
	return r.Exists(ctx, dealID, contactID)
}

func (r *DealContactRepository) AddContactToDeal(ctx context.Context, dealID, contactID uuid.UUID) (*DealContact, error) {
	return r.Add(ctx, dealID, contactID)
}

func (r *DealContactRepository) RemoveContactFromDeal(ctx context.Context, dealID, contactID uuid.UUID) (bool, error) {
	return r.Delete(ctx, dealID, contactID)
}

var campaignLeadMapping = repository.Mapping[CampaignLead, uuid.UUID, uuid.UUID]{
	Table:        "campaign_leads",
	FirstColumn:  "campaign_id",
	SecondColumn: "lead_id",
	New: func(campaignID, leadID uuid.UUID, now time.Time) *CampaignLead {
		return &CampaignLead{CampaignID: campaignID, LeadID: leadID, LinkState: repository.NewLinkState(now)}
	},
}

type CampaignLeadRepository struct {
	*repository.Junction[CampaignLead, uuid.UUID, uuid.UUID]
}

func NewCampaignLeadRepository(db bun.IDB, exec *resilience.Executor) (*CampaignLeadRepository, error) {
	j, err := repository.NewJunction(db, exec, campaignLeadMapping)
	if err != nil {
		return nil, err
	}
	return &CampaignLeadRepository{j}, nil
}

func (r *CampaignLeadRepository) WithTx(db bun.IDB) *CampaignLeadRepository {
	return &CampaignLeadRepository{r.Junction.WithTx(db)}
}

func (r *CampaignLeadRepository) LeadsForCampaign(ctx context.Context, campaignID uuid.UUID) ([]*CampaignLead, error) {
	return r.GetByFirstID(ctx, campaignID)
}

func (r *CampaignLeadRepository) CampaignsForLead(ctx context.Context, leadID uuid.UUID) ([]*CampaignLead, error) {
	return r.GetBySecondID(ctx, leadID)
}

func (r *CampaignLeadRepository) GetCampaignLead(ctx context.Context, campaignID, leadID uuid.UUID) (*CampaignLead, error) {
	return r.GetByID(ctx, campaignID, leadID)
}

func (r *CampaignLeadRepository) HasLead(ctx context.Context, campaignID, leadID uuid.UUID) (bool, error) {
	return r.Exists(ctx, campaignID, leadID)
}

func (r *CampaignLeadRepository) AddLeadToCampaign(ctx context.Context, campaignID, leadID uuid.UUID) (*CampaignLead, error) {
	return r.Add(ctx, campaignID, leadID)
}

func (r *CampaignLeadRepository) RemoveLeadFromCampaign(ctx context.Context, campaignID, leadID uuid.UUID) (bool, error) {
	return r.Delete(ctx, campaignID, leadID)
}
